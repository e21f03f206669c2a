package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/uplink/internal/audio"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultGRPCMethod is the unary method a speech sidecar exposes.
const DefaultGRPCMethod = "/uplink.speech.v1.SpeechToText/Transcribe"

// GRPCConfig addresses a speech sidecar.
type GRPCConfig struct {
	Endpoint string
	Method   string
	Language string
	Timeout  time.Duration
}

// GRPC calls a unary Struct-in/Struct-out recognizer. The request carries
// base64 WAV audio; the response holds "text" or a list of "segments".
type GRPC struct {
	conn     *grpc.ClientConn
	method   string
	language string
	timeout  time.Duration
}

// DialGRPC creates a lazily connecting client. Extra options are appended to
// the insecure transport default.
func DialGRPC(cfg GRPCConfig, opts ...grpc.DialOption) (*GRPC, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("speech sidecar endpoint is empty")
	}
	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = DefaultGRPCMethod
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial speech sidecar %q: %w", endpoint, err)
	}
	return &GRPC{conn: conn, method: method, language: strings.TrimSpace(cfg.Language), timeout: cfg.Timeout}, nil
}

// Transcribe sends one capture and waits for the recognizer's answer.
func (g *GRPC) Transcribe(ctx context.Context, capture audio.Capture) (string, error) {
	var wav bytes.Buffer
	if err := audio.EncodeWAV(&wav, capture.Samples, capture.SampleRate, capture.Channels); err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}

	req, err := structpb.NewStruct(map[string]any{
		"audio":       base64.StdEncoding.EncodeToString(wav.Bytes()),
		"encoding":    "wav",
		"sample_rate": capture.SampleRate,
		"channels":    capture.Channels,
		"language":    g.language,
	})
	if err != nil {
		return "", fmt.Errorf("build sidecar request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp := &structpb.Struct{}
	if err := g.conn.Invoke(callCtx, g.method, req, resp); err != nil {
		return "", fmt.Errorf("speech sidecar %s: %w", g.method, err)
	}
	return textFromResponse(resp)
}

// Close releases the client connection.
func (g *GRPC) Close() error {
	return g.conn.Close()
}

// textFromResponse prefers a top-level "text" field and otherwise assembles
// "segments", which may be plain strings or {text, final} objects.
func textFromResponse(resp *structpb.Struct) (string, error) {
	fields := resp.GetFields()
	if text, ok := fields["text"]; ok {
		if _, isString := text.GetKind().(*structpb.Value_StringValue); isString {
			return cleanSegment(text.GetStringValue()), nil
		}
	}

	list := fields["segments"].GetListValue()
	if list == nil {
		return "", errors.New("sidecar response has neither text nor segments")
	}

	var committed []string
	interim := ""
	for _, item := range list.GetValues() {
		switch kind := item.GetKind().(type) {
		case *structpb.Value_StringValue:
			committed = appendSegment(committed, kind.StringValue)
		case *structpb.Value_StructValue:
			seg := kind.StructValue.GetFields()
			text := seg["text"].GetStringValue()
			if final, ok := seg["final"]; ok && !final.GetBoolValue() {
				interim = text
				continue
			}
			committed = appendSegment(committed, text)
			interim = ""
		}
	}
	return strings.Join(collectSegments(committed, interim), " "), nil
}
