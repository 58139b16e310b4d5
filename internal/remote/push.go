package remote

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"
	xssh "golang.org/x/crypto/ssh"
)

// PushEnvFile uploads a stack env file to the remote host via SFTP, creating
// parent directories as needed. Used before a remote `up` so the compose
// files interpolate against the same environment the operator edited locally.
func (r *Runner) PushEnvFile(localPath, remotePath string) error {
	if r.baseDir != "" && !filepath.IsAbs(remotePath) {
		remotePath = filepath.Join(r.baseDir, remotePath)
	}
	cli, err := xssh.Dial("tcp", r.addr, r.clientConfig())
	if err != nil {
		return fmt.Errorf("ssh dial %s: %w", r.addr, err)
	}
	defer cli.Close()
	sf, err := sftp.NewClient(cli)
	if err != nil {
		return fmt.Errorf("sftp client: %w", err)
	}
	defer sf.Close()
	if err := sf.MkdirAll(filepath.Dir(remotePath)); err != nil {
		return fmt.Errorf("mkdir remote: %w", err)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local: %w", err)
	}
	defer src.Close()
	dst, err := sf.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	// Env files carry credentials.
	if err := sf.Chmod(remotePath, 0600); err != nil {
		return fmt.Errorf("chmod remote: %w", err)
	}
	return nil
}
