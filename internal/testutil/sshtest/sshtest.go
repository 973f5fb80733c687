// Package sshtest runs an in-process SSH gateway that accepts
// direct-tcpip forwards, for tests of the tunnelled dialer.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Server is a loopback SSH gateway.
type Server struct {
	Addr    string
	HostKey ssh.PublicKey

	password   string
	authorized map[string]bool
	ln         net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	forwards []string
}

type directTCPIP struct {
	Host       string
	Port       uint32
	OriginHost string
	OriginPort uint32
}

// Start launches a gateway that accepts password and any of the given
// public keys.  It is shut down when the test ends.
func Start(t testing.TB, password string, keys ...ssh.PublicKey) *Server {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{
		Addr:       ln.Addr().String(),
		HostKey:    signer.PublicKey(),
		password:   password,
		authorized: map[string]bool{},
		ln:         ln,
	}
	for _, k := range keys {
		s.authorized[string(k.Marshal())] = true
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if s.password != "" && string(pass) == s.password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected")
		},
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if s.authorized[string(key.Marshal())] {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	cfg.AddHostKey(signer)

	go s.serve(cfg)
	t.Cleanup(s.Close)
	return s
}

// Host returns the gateway's IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr)
	return host
}

// Port returns the gateway's TCP port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr)
	n, _ := strconv.Atoi(port)
	return n
}

// Forwards lists the host:port targets clients asked the gateway to reach.
func (s *Server) Forwards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.forwards...)
}

// Close stops accepting and drops every client connection.
func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
}

func (s *Server) serve(cfg *ssh.ServerConfig) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.handle(conn, cfg)
	}
}

func (s *Server) handle(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "direct-tcpip" {
			newCh.Reject(ssh.UnknownChannelType, "only direct-tcpip is supported") //nolint:errcheck
			continue
		}
		var msg directTCPIP
		if err := ssh.Unmarshal(newCh.ExtraData(), &msg); err != nil {
			newCh.Reject(ssh.ConnectionFailed, "bad payload") //nolint:errcheck
			continue
		}
		target := net.JoinHostPort(msg.Host, strconv.Itoa(int(msg.Port)))

		s.mu.Lock()
		s.forwards = append(s.forwards, target)
		s.mu.Unlock()

		upstream, err := net.Dial("tcp", target)
		if err != nil {
			newCh.Reject(ssh.ConnectionFailed, err.Error()) //nolint:errcheck
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			upstream.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go func() {
			io.Copy(ch, upstream) //nolint:errcheck
			ch.CloseWrite()       //nolint:errcheck
		}()
		go func() {
			io.Copy(upstream, ch) //nolint:errcheck
			upstream.Close()
		}()
	}
}

// WriteClientKey writes a fresh unencrypted ed25519 key in OpenSSH
// format to dir and returns its path and public half.
func WriteClientKey(t testing.TB, dir string) (string, ssh.PublicKey) {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "netboot-test")
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("client signer: %v", err)
	}

	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write client key: %v", err)
	}
	return path, signer.PublicKey()
}

// WriteKnownHosts writes a known_hosts file pinning key for the
// gateway's address.
func (s *Server) WriteKnownHosts(t testing.TB, dir string, key ssh.PublicKey) string {
	t.Helper()

	path := filepath.Join(dir, "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(s.Addr)}, key) + "\n"
	if err := os.WriteFile(path, []byte(line), 0o600); err != nil {
		t.Fatalf("write known_hosts: %v", err)
	}
	return path
}

// OtherHostKey returns a freshly generated key that is not the
// gateway's, for host-key mismatch tests.
func OtherHostKey(t testing.TB) ssh.PublicKey {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	return key
}
