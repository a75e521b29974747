package queue

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// respServer speaks just enough RESP2 for the Redis queue: LPUSH and a
// blocking BRPOP over in-memory lists. Everything else answers +OK.
type respServer struct {
	ln net.Listener

	mu    sync.Mutex
	lists map[string][]string
}

func startRESPServer(t *testing.T) *respServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &respServer{ln: ln, lists: make(map[string][]string)}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *respServer) Addr() string { return s.ln.Addr().String() }

func (s *respServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		cmd, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.handle(cmd)); err != nil {
			return
		}
	}
}

func (s *respServer) handle(cmd []string) string {
	if len(cmd) == 0 {
		return "-ERR empty command\r\n"
	}
	switch strings.ToUpper(cmd[0]) {
	case "HELLO":
		return "-ERR unknown command 'HELLO'\r\n"
	case "PING":
		return "+PONG\r\n"
	case "LPUSH":
		s.mu.Lock()
		key := cmd[1]
		for _, v := range cmd[2:] {
			s.lists[key] = append([]string{v}, s.lists[key]...)
		}
		n := len(s.lists[key])
		s.mu.Unlock()
		return fmt.Sprintf(":%d\r\n", n)
	case "BRPOP":
		keys := cmd[1 : len(cmd)-1]
		secs, _ := strconv.ParseFloat(cmd[len(cmd)-1], 64)
		return s.brpop(keys, time.Duration(secs*float64(time.Second)))
	default:
		return "+OK\r\n"
	}
}

// brpop waits up to timeout (forever when zero) for one of keys to hold a
// value. A timeout answers with a null array, as Redis does.
func (s *respServer) brpop(keys []string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		for _, key := range keys {
			if l := s.lists[key]; len(l) > 0 {
				v := l[len(l)-1]
				s.lists[key] = l[:len(l)-1]
				s.mu.Unlock()
				return fmt.Sprintf("*2\r\n$%d\r\n%s\r\n$%d\r\n%s\r\n", len(key), key, len(v), v)
			}
		}
		s.mu.Unlock()
		if timeout > 0 && time.Now().After(deadline) {
			return "*-1\r\n"
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return strings.Fields(line), nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := readLine(r)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimPrefix(header, "$"))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
