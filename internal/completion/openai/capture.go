package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// capturedBody receives the raw response body of one request.
type capturedBody struct {
	data []byte
}

type captureKey struct{}

func withCapture(ctx context.Context) (context.Context, *capturedBody) {
	c := &capturedBody{}
	return context.WithValue(ctx, captureKey{}, c), c
}

// captureTransport keeps a copy of successful response bodies for requests
// whose context carries a capturedBody.
type captureTransport struct {
	base http.RoundTripper
}

func (t captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rsp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c, ok := req.Context().Value(captureKey{}).(*capturedBody)
	if !ok || rsp.StatusCode < 200 || rsp.StatusCode >= 300 {
		return rsp, nil
	}
	data, err := io.ReadAll(rsp.Body)
	_ = rsp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.data = data
	rsp.Body = io.NopCloser(bytes.NewReader(data))
	return rsp, nil
}

// hasContent reports whether the first choice's message carries a non-null
// content field. The typed response cannot tell a missing field from "".
func hasContent(body []byte) bool {
	var raw struct {
		Choices []struct {
			Message map[string]json.RawMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw.Choices) == 0 {
		return false
	}
	content, ok := raw.Choices[0].Message["content"]
	return ok && string(bytes.TrimSpace(content)) != "null"
}
