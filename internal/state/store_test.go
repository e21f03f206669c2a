package state

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rbright/uplink/internal/fsm"
	"github.com/stretchr/testify/require"
)

func TestNewStoreStartsIdle(t *testing.T) {
	s := NewStore("Neural Link: STANDBY")
	snap := s.Read()
	require.Equal(t, fsm.StateIdle, snap.Phase)
	require.Equal(t, "Neural Link: STANDBY", snap.Text)
	require.False(t, snap.UpdatedAt.IsZero())
}

func TestSetPhaseKeepsText(t *testing.T) {
	s := NewStore("standby")
	s.Write(fsm.StateIdle, "previous reply")

	snap := s.SetPhase(fsm.StateRecording)
	require.Equal(t, fsm.StateRecording, snap.Phase)
	require.Equal(t, "previous reply", snap.Text)
	require.Equal(t, snap, s.Read())
}

func TestBeginCycleTagsFollowingWrites(t *testing.T) {
	s := NewStore("standby")
	s.BeginCycle("cycle-1", fsm.StateRecording)

	snap := s.Write(fsm.StateIdle, "done")
	require.Equal(t, "cycle-1", snap.Cycle)
	require.Equal(t, "done", s.Text())
	require.Equal(t, fsm.StateIdle, s.Phase())
}

func TestWriteNewerReplyReplacesOlder(t *testing.T) {
	s := NewStore("standby")
	s.Write(fsm.StateIdle, "first")
	s.Write(fsm.StateIdle, "second")
	require.Equal(t, "second", s.Text())
}

func TestEveryWriteAdvancesSeq(t *testing.T) {
	s := NewStore("standby")
	initial := s.Read().Seq

	a := s.BeginCycle("cycle-1", fsm.StateRecording)
	b := s.Write(fsm.StateTranscribing, "processing")
	c := s.SetPhase(fsm.StateResponding)
	d := s.Write(fsm.StateIdle, "done")

	require.Equal(t, []uint64{initial + 1, initial + 2, initial + 3, initial + 4}, []uint64{a.Seq, b.Seq, c.Seq, d.Seq})
	require.Equal(t, d, s.Read())
}

// Writers pair phase i with text "i:<phase>"; every read must see a matching pair.
func TestConcurrentReadsNeverObserveTornPairs(t *testing.T) {
	s := NewStore("idle:" + string(fsm.StateIdle))
	phases := []fsm.State{fsm.StateIdle, fsm.StateRecording, fsm.StateTranscribing, fsm.StateResponding}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Read()
				if !strings.HasSuffix(snap.Text, ":"+string(snap.Phase)) {
					errs <- fmt.Errorf("torn snapshot: phase=%s text=%s", snap.Phase, snap.Text)
					return
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		phase := phases[i%len(phases)]
		s.Write(phase, fmt.Sprintf("%d:%s", i, phase))
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}
