package writerbackends

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"webpconv/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const sftpDialTimeout = 10 * time.Second

// sftpTarget is the resolved sftp section of a publish target
type sftpTarget struct {
	addr       string
	remotePath string
	client     *ssh.ClientConfig
}

// parseSFTPTarget reads host, port (default 22), user, remoteDir, password or
// privateKey (base64 or PEM) and the optional hostKeyFingerprint
func parseSFTPTarget(accessInfo map[string]string) (sftpTarget, error) {
	host, user, remoteDir := accessInfo["host"], accessInfo["user"], accessInfo["remoteDir"]
	if host == "" || user == "" || remoteDir == "" {
		return sftpTarget{}, errors.New("sftp needs host, user and remoteDir")
	}
	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}

	dir := path.Clean(remoteDir)
	prefix := dir
	if dir != "/" {
		prefix += "/"
	}
	remotePath := path.Join(dir, strings.TrimPrefix(accessInfo[KeyField], "/"))
	if !strings.HasPrefix(remotePath, prefix) || remotePath == dir {
		return sftpTarget{}, fmt.Errorf("key %q escapes %s", accessInfo[KeyField], remoteDir)
	}

	auth, err := sftpAuth(accessInfo["privateKey"], accessInfo["password"])
	if err != nil {
		return sftpTarget{}, err
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if fp := accessInfo["hostKeyFingerprint"]; fp != "" {
		hostKey = pinnedHostKey(fp)
	}

	return sftpTarget{
		addr:       net.JoinHostPort(host, port),
		remotePath: remotePath,
		client: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{auth},
			HostKeyCallback: hostKey,
			Timeout:         sftpDialTimeout,
		},
	}, nil
}

// sftpAuth prefers a private key over a password
func sftpAuth(privateKey, password string) (ssh.AuthMethod, error) {
	switch {
	case privateKey != "":
		pem, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			pem = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	case password != "":
		return ssh.Password(password), nil
	default:
		return nil, errors.New("sftp needs a password or privateKey")
	}
}

// pinnedHostKey accepts only a server key whose SHA256 fingerprint matches fp
// (the "SHA256:..." form printed by ssh-keygen -l)
func pinnedHostKey(fp string) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if got := ssh.FingerprintSHA256(key); got != fp {
			return fmt.Errorf("host key mismatch for %s: got %s", hostname, got)
		}
		return nil
	}
}

// UploadToSFTPWithCreds writes reader to remoteDir/key on an SFTP server.
// Cancelling ctx aborts the transfer by closing the connection.
func UploadToSFTPWithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	target, err := parseSFTPTarget(accessInfo)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: sftpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target.addr, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target.addr, target.client)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", target.addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("start sftp session: %w", err)
	}
	defer client.Close()

	if err := client.MkdirAll(path.Dir(target.remotePath)); err != nil {
		return fmt.Errorf("create remote dir for %s: %w", target.remotePath, err)
	}
	remote, err := client.OpenFile(target.remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("open %s: %w", target.remotePath, err)
	}
	if _, err := remote.ReadFrom(reader); err != nil {
		remote.Close()
		return fmt.Errorf("write %s: %w", target.remotePath, err)
	}
	if err := remote.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target.remotePath, err)
	}

	logger.Debugf("Uploaded %s to sftp://%s", target.remotePath, target.addr)
	return nil
}
