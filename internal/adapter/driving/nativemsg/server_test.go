package nativemsg_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passhost/internal/adapter/driven/memory"
	"github.com/ericfisherdev/passhost/internal/adapter/driving/nativemsg"
	"github.com/ericfisherdev/passhost/internal/application"
	"github.com/ericfisherdev/passhost/internal/crypto"
	"github.com/ericfisherdev/passhost/internal/domain/model"
)

type harness struct {
	server *nativemsg.Server
	store  *memory.Store
}

func newHarness(t *testing.T, maxRequestSize int) *harness {
	t.Helper()

	env, err := crypto.NewEnvelope(bytes.Repeat([]byte{0x42}, crypto.KeySize), crypto.AlgorithmAES256GCM)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	srv, err := nativemsg.NewServer(application.NewDispatcher(env, store, logger), logger, maxRequestSize)
	require.NoError(t, err)

	return &harness{server: srv, store: store}
}

// exchange sends each request as a frame and returns the decoded responses.
func (h *harness) exchange(t *testing.T, requests ...string) []string {
	t.Helper()

	var in bytes.Buffer
	for _, r := range requests {
		require.NoError(t, nativemsg.WriteFrame(&in, []byte(r)))
	}

	var out bytes.Buffer
	require.NoError(t, h.server.Serve(context.Background(), &in, &out))

	var responses []string
	for {
		payload, err := nativemsg.ReadFrame(&out, nativemsg.MaxResponseSize)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		responses = append(responses, string(payload))
	}
	return responses
}

const (
	saveAlice  = `{"SavePassword":{"credentials":{"username":"alice","password":"s3cr3t","url":"https://example.com"}}}`
	getExample = `{"GetPassword":{"url":"https://example.com"}}`
	delExample = `{"DeletePassword":{"url":"https://example.com"}}`
	aliceReply = `{"Password":{"username":"alice","password":"s3cr3t","url":"https://example.com"}}`
)

func TestServer_SaveThenGet(t *testing.T) {
	got := newHarness(t, 0).exchange(t, saveAlice, getExample)

	require.Len(t, got, 2)
	assert.JSONEq(t, `"Success"`, got[0])
	assert.JSONEq(t, aliceReply, got[1])
}

func TestServer_DeleteThenGet(t *testing.T) {
	got := newHarness(t, 0).exchange(t, saveAlice, delExample, getExample)

	require.Len(t, got, 3)
	assert.JSONEq(t, `"Success"`, got[1])
	assert.JSONEq(t, `{"Error":"not found"}`, got[2])
}

func TestServer_GetNeverSaved(t *testing.T) {
	got := newHarness(t, 0).exchange(t, `{"GetPassword":{"url":"https://never-saved.test"}}`)
	assert.Equal(t, []string{`{"Error":"not found"}`}, got)
}

func TestServer_SecondSaveWins(t *testing.T) {
	second := `{"SavePassword":{"credentials":{"username":"alice","password":"other","url":"https://example.com"}}}`
	got := newHarness(t, 0).exchange(t, saveAlice, second, getExample)

	require.Len(t, got, 3)
	assert.JSONEq(t, `{"Password":{"username":"alice","password":"other","url":"https://example.com"}}`, got[2])
}

func TestServer_CorruptedCiphertext(t *testing.T) {
	h := newHarness(t, 0)
	h.exchange(t, saveAlice)

	ctx := context.Background()
	blob, err := h.store.Load(ctx, "https://example.com")
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF
	require.NoError(t, h.store.Save(ctx, "https://example.com", blob))

	assert.Equal(t, []string{`{"Error":"encryption error"}`}, h.exchange(t, getExample))
}

func TestServer_InvalidRequestKeepsServing(t *testing.T) {
	got := newHarness(t, 0).exchange(t, `not json`, `{"Unknown":{}}`, saveAlice, getExample)

	require.Len(t, got, 4)
	assert.JSONEq(t, `{"Error":"invalid request"}`, got[0])
	assert.JSONEq(t, `{"Error":"invalid request"}`, got[1])
	assert.JSONEq(t, `"Success"`, got[2])
	assert.JSONEq(t, aliceReply, got[3])
}

func TestServer_OversizedRequestIsSkipped(t *testing.T) {
	h := newHarness(t, 128)
	big := `{"GetPassword":{"url":"https://` + string(bytes.Repeat([]byte("a"), 200)) + `.test"}}`

	got := h.exchange(t, big, saveAlice, getExample)

	require.Len(t, got, 3)
	assert.JSONEq(t, `{"Error":"message too large"}`, got[0])
	assert.JSONEq(t, `"Success"`, got[1])
	assert.JSONEq(t, aliceReply, got[2])
}

func TestServer_TruncatedStreamIsError(t *testing.T) {
	h := newHarness(t, 0)

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteFrame(&in, []byte(getExample)))
	truncated := in.Bytes()[:in.Len()-5]

	err := h.server.Serve(context.Background(), bytes.NewReader(truncated), io.Discard)
	assert.ErrorIs(t, err, nativemsg.ErrTruncatedFrame)
}

func TestServer_StopsWhenContextCanceled(t *testing.T) {
	h := newHarness(t, 0)

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteFrame(&in, []byte(saveAlice)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, h.server.Serve(ctx, &in, &out))
	assert.Zero(t, out.Len())
	assert.Zero(t, h.store.Len())
}

func TestServer_FramesUseNativeByteOrder(t *testing.T) {
	h := newHarness(t, 0)

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteFrame(&in, []byte(getExample)))

	var out bytes.Buffer
	require.NoError(t, h.server.Serve(context.Background(), &in, &out))

	raw := out.Bytes()
	size := binary.NativeEndian.Uint32(raw[:4])
	assert.Equal(t, int(size), len(raw)-4)
	assert.JSONEq(t, `{"Error":"not found"}`, string(raw[4:]))
}

type staticHandler struct {
	resp model.Response
}

func (h staticHandler) Handle(context.Context, model.Request) model.Response { return h.resp }

func TestServer_OversizedResponseIsReplaced(t *testing.T) {
	huge := model.CredentialResponse{Credential: model.Credential{
		Password: string(bytes.Repeat([]byte("x"), nativemsg.MaxResponseSize)),
		URL:      "https://example.com",
	}}
	srv, err := nativemsg.NewServer(staticHandler{resp: huge}, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.NoError(t, err)

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteFrame(&in, []byte(getExample)))
	var out bytes.Buffer
	require.NoError(t, srv.Serve(context.Background(), &in, &out))

	payload, err := nativemsg.ReadFrame(&out, nativemsg.MaxResponseSize)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Error":"message too large"}`, string(payload))
}

// blockingHandler holds each request until release is closed and reports the
// state of the context it was given.
type blockingHandler struct {
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (h *blockingHandler) Handle(ctx context.Context, _ model.Request) model.Response {
	close(h.started)
	<-h.release
	h.ctxErr <- ctx.Err()
	return model.Success{}
}

func TestServer_ShutdownWaitsForInFlightRequest(t *testing.T) {
	handler := &blockingHandler{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	srv, err := nativemsg.NewServer(handler, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inR, inW := io.Pipe()
	defer inW.Close()
	var out bytes.Buffer
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ctx, inR, &out) }()

	require.NoError(t, nativemsg.WriteFrame(inW, []byte(saveAlice)))
	<-handler.started

	// Signal arrives while the request is being handled.
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- srv.Shutdown(shutdownCtx) }()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned while a request was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(handler.release)
	require.NoError(t, <-shutdownDone)
	assert.NoError(t, <-handler.ctxErr, "in-flight request must not see the cancellation")
	require.NoError(t, <-serveDone)

	payload, err := nativemsg.ReadFrame(&out, nativemsg.MaxResponseSize)
	require.NoError(t, err)
	assert.JSONEq(t, `"Success"`, string(payload))
}

func TestServer_ShutdownRejectsNewRequests(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.server.Shutdown(context.Background()))

	var in bytes.Buffer
	require.NoError(t, nativemsg.WriteFrame(&in, []byte(saveAlice)))
	var out bytes.Buffer

	require.NoError(t, h.server.Serve(context.Background(), &in, &out))
	assert.Zero(t, out.Len())
	assert.Zero(t, h.store.Len())
}

func TestServer_ShutdownTimesOut(t *testing.T) {
	handler := &blockingHandler{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	srv, err := nativemsg.NewServer(handler, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.NoError(t, err)

	inR, inW := io.Pipe()
	defer inW.Close()
	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(context.Background(), inR, io.Discard) }()

	require.NoError(t, nativemsg.WriteFrame(inW, []byte(saveAlice)))
	<-handler.started

	shutdownCtx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, srv.Shutdown(shutdownCtx), context.DeadlineExceeded)

	close(handler.release)
	require.NoError(t, inW.Close())
	require.NoError(t, <-serveDone)
}
