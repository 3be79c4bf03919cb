package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 answers the handful of object calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func respond(status int, body []byte, h http.Header) *http.Response {
	if h == nil {
		h = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: h}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		// first page holds one key so pagination is exercised
		start, end := 0, len(keys)
		truncated := false
		if req.URL.Query().Get("continuation-token") == "" && len(keys) > 1 {
			end, truncated = 1, true
		} else if len(keys) > 1 {
			start = 1
		}
		var b strings.Builder
		b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
		if truncated {
			b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>next</NextContinuationToken>")
		} else {
			b.WriteString("<IsTruncated>false</IsTruncated>")
		}
		for _, k := range keys[start:end] {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(200, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		return respond(200, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodHead, http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(404, nil, nil), nil
		}
		h := http.Header{"Content-Length": {strconv.Itoa(len(body))}, "Content-Type": {"application/json"}}
		if req.Method == http.MethodHead {
			body = nil
		}
		return respond(200, body, h), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(204, nil, nil), nil
	}
	return respond(501, nil, nil), nil
}

// decodeChunked strips aws-chunked framing from an uploaded body.
func decodeChunked(b []byte) ([]byte, bool) {
	var out []byte
	rest := b
	for {
		i := bytes.Index(rest, []byte("\r\n"))
		if i < 0 {
			return nil, false
		}
		head := string(rest[:i])
		if j := strings.IndexByte(head, ';'); j >= 0 {
			head = head[:j]
		}
		n, err := strconv.ParseInt(head, 16, 64)
		if err != nil {
			return nil, false
		}
		rest = rest[i+2:]
		if n == 0 {
			return out, true
		}
		if int64(len(rest)) < n+2 {
			return nil, false
		}
		out = append(out, rest[:n]...)
		rest = rest[n+2:]
	}
}

func newFakeS3Store(t *testing.T, prefix string) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return newS3(client, "bucket", prefix), fake
}

func TestS3(t *testing.T) {
	s, _ := newFakeS3Store(t, "")
	if s.Driver() != DriverS3 {
		t.Fatalf("driver %s", s.Driver())
	}
	exerciseStore(t, s)
}

func TestS3Prefix(t *testing.T) {
	s, fake := newFakeS3Store(t, "team/screens")
	ctx := context.Background()
	if _, err := s.Put(ctx, "one.json", sampleResults("t")); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["team/screens/one.json"]; !ok {
		t.Fatalf("object keys %v", fake.objects)
	}
	list, err := s.List(ctx, "")
	if err != nil || len(list) != 1 || list[0].Key != "one.json" {
		t.Fatalf("list = %+v, %v", list, err)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Fatal("expected error")
	}
}
