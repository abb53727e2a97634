package tcp

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powsign/internal/domain"
	"powsign/internal/usecases"
	"powsign/pkg/sig/rsapss"
)

var (
	keysOnce sync.Once
	keys     *rsapss.KeyPair
	keysErr  error
)

func sessionKeys(t *testing.T) *rsapss.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys, keysErr = rsapss.GenerateKeyPair(rsapss.DefaultParams())
	})
	require.NoError(t, keysErr)
	return keys
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs a server on a loopback port until the test ends.
func startServer(t *testing.T, cfg *Config, difficulty uint64) string {
	t.Helper()

	proofUsecase, err := usecases.NewProofUsecase(difficulty, rsapss.DefaultParams(), time.Minute)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := NewServer(cfg, proofUsecase, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, listener)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return listener.Addr().String()
}

func defaultConfig() *Config {
	return &Config{
		Deadline:  5 * time.Second,
		RateLimit: 0,
	}
}

type rawSession struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *rawSession {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return &rawSession{conn: conn, reader: bufio.NewReader(conn)}
}

func (r *rawSession) challenge(t *testing.T) domain.Challenge {
	t.Helper()
	frame := make([]byte, 5)
	_, err := io.ReadFull(r.reader, frame)
	require.NoError(t, err)
	return domain.Challenge{Version: frame[0], Difficulty: uint64(binary.BigEndian.Uint32(frame[1:]))}
}

func (r *rawSession) send(t *testing.T, lines ...string) string {
	t.Helper()
	_, err := io.WriteString(r.conn, strings.Join(lines, "\n")+"\n")
	require.NoError(t, err)
	response, err := r.reader.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSpace(response)
}

func proofLinesFor(t *testing.T, challenge domain.Challenge, identity string) []string {
	t.Helper()
	solver, err := usecases.NewSolverUsecase(sessionKeys(t), rsapss.DefaultParams(), 1)
	require.NoError(t, err)
	proof, err := solver.Prove(context.Background(), identity, challenge)
	require.NoError(t, err)
	return []string{
		proof.Identity,
		fmt.Sprint(proof.Nonce),
		base64.StdEncoding.EncodeToString(proof.Signature),
		base64.StdEncoding.EncodeToString(proof.PublicKey),
	}
}

func TestServerAcceptsValidProof(t *testing.T) {
	addr := startServer(t, defaultConfig(), 2)

	session := dial(t, addr)
	challenge := session.challenge(t)
	assert.Equal(t, domain.ProtocolVersion, challenge.Version)
	assert.Equal(t, uint64(2), challenge.Difficulty)

	response := session.send(t, proofLinesFor(t, challenge, "pi")...)
	require.True(t, strings.HasPrefix(response, "SUCCESS:"), response)

	parts := strings.Split(response, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "007477b138a4d58c8a17423f6b9b76b40210feb17a0fb70d15471360d2270396", parts[1])

	fingerprint, err := rsapss.Fingerprint(sessionKeys(t).Public)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, parts[2])
}

func TestServerRejectsReplay(t *testing.T) {
	addr := startServer(t, defaultConfig(), 1)

	first := dial(t, addr)
	lines := proofLinesFor(t, first.challenge(t), "replayed")
	require.True(t, strings.HasPrefix(first.send(t, lines...), "SUCCESS:"))

	second := dial(t, addr)
	second.challenge(t)
	assert.Equal(t, "ERROR:REPLAYED:Proof was already accepted", second.send(t, lines...))
}

func TestServerRejectsBadProofs(t *testing.T) {
	addr := startServer(t, defaultConfig(), 1)

	valid := proofLinesFor(t, domain.Challenge{Version: domain.ProtocolVersion, Difficulty: 1}, "pi")

	other, err := rsapss.GenerateKeyPair(rsapss.DefaultParams())
	require.NoError(t, err)
	otherDER, err := rsapss.MarshalPublicKey(other.Public)
	require.NoError(t, err)

	cases := map[string]struct {
		lines []string
		code  string
	}{
		"bad nonce":      {[]string{"pi", "eight", valid[2], valid[3]}, "INVALID_FORMAT"},
		"bad signature":  {[]string{"pi", "8", "%%%", valid[3]}, "INVALID_FORMAT"},
		"weak work":      {[]string{"pi", "0", valid[2], valid[3]}, "INVALID_SOLUTION"},
		"wrong identity": {[]string{"pj", "8", valid[2], valid[3]}, "INVALID_SOLUTION"},
		"garbage key":    {[]string{"pi", "8", valid[2], base64.StdEncoding.EncodeToString([]byte("key"))}, "INVALID_KEY"},
		"other key":      {[]string{"pi", "8", valid[2], base64.StdEncoding.EncodeToString(otherDER)}, "INVALID_SIGNATURE"},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			session := dial(t, addr)
			session.challenge(t)
			response := session.send(t, c.lines...)
			assert.True(t, strings.HasPrefix(response, "ERROR:"+c.code+":"), response)
		})
	}
}

func TestServerRateLimits(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	addr := startServer(t, cfg, 0)

	first := dial(t, addr)
	first.challenge(t)

	second := dial(t, addr)
	line, err := second.reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ERROR:RATE_LIMITED:Too many connections, retry later", strings.TrimSpace(line))
}

func TestServerTimesOutIdleClient(t *testing.T) {
	cfg := defaultConfig()
	cfg.Deadline = 200 * time.Millisecond
	addr := startServer(t, cfg, 0)

	session := dial(t, addr)
	session.challenge(t)

	_, err := session.reader.ReadString('\n')
	// the server either reports the timeout or simply closes the connection
	if err == nil {
		return
	}
	assert.ErrorIs(t, err, io.EOF)
}

func TestToErrorResponse(t *testing.T) {
	assert.Equal(t, ErrRespInvalidFormat, ToErrorResponse(NewConnectionError("op", ErrSolutionFormat, "")))
	assert.Equal(t, ErrRespTimeout, ToErrorResponse(fmt.Errorf("wrapped: %w", ErrReadTimeout)))
	assert.Equal(t, ErrRespReplayed, ToErrorResponse(NewConnectionError("op", usecases.ErrReplayedProof, "")))
	assert.Equal(t, ErrRespInternal, ToErrorResponse(io.ErrUnexpectedEOF))
}

func TestParseProof(t *testing.T) {
	proof, err := parseProof([]string{"pi", " 38347 ", "AQID", "BAUG"})
	require.NoError(t, err)
	assert.Equal(t, "pi", proof.Identity)
	assert.Equal(t, uint64(38347), proof.Nonce)
	assert.Equal(t, []byte{1, 2, 3}, proof.Signature)
	assert.Equal(t, []byte{4, 5, 6}, proof.PublicKey)

	_, err = parseProof([]string{"pi", "-1", "AQID", "BAUG"})
	assert.ErrorIs(t, err, ErrSolutionFormat)

	_, err = parseProof([]string{"pi", "1", "", "BAUG"})
	assert.ErrorIs(t, err, ErrSolutionFormat)
}

func TestSessionWriteTimeoutReleasesWriter(t *testing.T) {
	peer, conn := net.Pipe()
	defer peer.Close()
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// nobody reads from peer, so the flush blocks until ctx ends
	session := &Session{
		id:      "write-timeout",
		conn:    conn,
		writer:  bufio.NewWriter(conn),
		context: ctx,
	}

	err := session.write([]byte{domain.ProtocolVersion, 0, 0, 0, 1})
	assert.ErrorIs(t, err, ErrWriteTimeout)

	// the abandoned write has returned, so touching the writer is safe
	assert.Error(t, session.writer.Flush())
}

func TestServerStalledReaderDoesNotShareWriter(t *testing.T) {
	proofUsecase, err := usecases.NewProofUsecase(0, rsapss.DefaultParams(), time.Minute)
	require.NoError(t, err)
	server := NewServer(&Config{Deadline: 2 * time.Millisecond}, proofUsecase, discardLogger())

	for i := 0; i < 100; i++ {
		peer, conn := net.Pipe()

		done := make(chan struct{})
		go func() {
			defer close(done)
			server.handleConnection(context.Background(), conn)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("connection %d did not finish", i)
		}
		peer.Close()
	}
}
