package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type memObject struct {
	buf    bytes.Buffer
	closed bool
}

func (o *memObject) Write(p []byte) (int, error) { return o.buf.Write(p) }
func (o *memObject) Close() error                 { o.closed = true; return nil }

type memStore struct {
	objects map[string]*memObject
	readErr error
}

func (s *memStore) NewWriter(ctx context.Context, object string) io.WriteCloser {
	o := &memObject{}
	s.objects[object] = o
	return o
}

func (s *memStore) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	o, ok := s.objects[object]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(o.buf.Bytes())), nil
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/payloads/a.json", "bucket", "payloads/a.json", false},
		{"gs://bucket", "", "", true},
		{"gs:///obj", "", "", true},
		{"https://bucket/obj", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI() = %q, %q", bucket, object)
			}
		})
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	if got := ObjectName(at, "abc"); got != "payloads/2025/03/08/abc.json" {
		t.Errorf("ObjectName() = %q", got)
	}
}

func TestGCSArchiver_RoundTrip(t *testing.T) {
	store := &memStore{objects: map[string]*memObject{}}
	a := &GCSArchiver{
		bucket: "ledger-archive",
		store:  store,
		now:    func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) },
	}

	uri, err := a.ArchivePayload(context.Background(), "FetchTransactions", []byte(`{"bad":`))
	if err != nil {
		t.Fatalf("ArchivePayload failed: %v", err)
	}
	if !strings.HasPrefix(uri, "gs://ledger-archive/payloads/2025/01/10/") {
		t.Errorf("uri = %q", uri)
	}
	for _, o := range store.objects {
		if !o.closed {
			t.Error("writer was not closed")
		}
	}

	data, err := a.Fetch(context.Background(), uri)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != `{"bad":` {
		t.Errorf("Fetch() = %q", data)
	}

	store.readErr = errors.New("denied")
	if _, err := a.Fetch(context.Background(), uri); err == nil {
		t.Error("expected read error")
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
