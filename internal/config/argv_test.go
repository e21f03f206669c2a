package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgv(t *testing.T) {
	t.Setenv("UPLINK_VOICES", "/opt/voices")

	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "espeak-ng --stdin", want: []string{"espeak-ng", "--stdin"}},
		{name: "quoted spaces", input: `piper --model "en us.onnx"`, want: []string{"piper", "--model", "en us.onnx"}},
		{name: "single quote", input: `piper --model 'en us.onnx'`, want: []string{"piper", "--model", "en us.onnx"}},
		{name: "escaped space", input: `say hello\ world`, want: []string{"say", "hello world"}},
		{name: "leading comment", input: `# espeak-ng --stdin`, want: nil},
		{name: "env reference", input: `piper --model $UPLINK_VOICES/en.onnx`, want: []string{"piper", "--model", "/opt/voices/en.onnx"}},
		{name: "unterminated quote", input: `say "oops`, wantErr: `parse command "say \"oops"`},
		{name: "unterminated escape", input: `say hello\`, wantErr: "parse command"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
