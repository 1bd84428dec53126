package email

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"yt-monitor/shared/config"
)

// startSMTPServer runs a minimal SMTP server for one connection. When
// tlsConfig is non-nil the server advertises STARTTLS and upgrades with it.
func startSMTPServer(t *testing.T, tlsConfig *tls.Config) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		tc := textproto.NewConn(conn)
		tc.PrintfLine("220 test.local ESMTP")

		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch strings.ToUpper(fields[0]) {
			case "EHLO", "HELO":
				tc.PrintfLine("250-test.local")
				if tlsConfig != nil {
					tc.PrintfLine("250-STARTTLS")
				}
				tc.PrintfLine("250 AUTH PLAIN")
			case "STARTTLS":
				tc.PrintfLine("220 Ready to start TLS")
				conn = tls.Server(conn, tlsConfig)
				tc = textproto.NewConn(conn)
			case "AUTH":
				tc.PrintfLine("235 Authentication successful")
			case "QUIT":
				tc.PrintfLine("221 Bye")
				return
			default:
				tc.PrintfLine("250 OK")
			}
		}
	}()

	return ln.Addr().String()
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func smtpSender(t *testing.T, addr string) *Sender {
	t.Helper()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("Failed to split address %s: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Bad port %s: %v", portStr, err)
	}

	return NewSender(&config.EmailConfig{
		SMTPServer: host,
		SMTPPort:   port,
		Username:   "user",
		Password:   "pass",
		FromEmail:  "from@example.com",
		ToEmail:    "to@example.com",
	})
}

func TestSMTPConnection(t *testing.T) {
	addr := startSMTPServer(t, nil)
	s := smtpSender(t, addr)

	if err := s.TestConnection(); err != nil {
		t.Fatalf("TestConnection() failed: %v", err)
	}
}

func TestSMTPConnectionStartTLSServerName(t *testing.T) {
	cert := selfSignedCert(t)
	addr := startSMTPServer(t, &tls.Config{Certificates: []tls.Certificate{cert}})
	s := smtpSender(t, addr)

	// The self-signed certificate is untrusted, so the handshake fails at
	// verification. What matters is that it gets that far: a TLS config
	// without a server name is rejected before any handshake happens.
	err := s.TestConnection()
	if err == nil {
		t.Fatal("TestConnection() accepted a self-signed certificate")
	}
	if strings.Contains(err.Error(), "InsecureSkipVerify") {
		t.Fatalf("TLS config is missing the server name: %v", err)
	}
	if !strings.Contains(err.Error(), "certificate") {
		t.Fatalf("unexpected STARTTLS failure: %v", err)
	}
}
