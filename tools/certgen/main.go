// Package main generates a development CA and a server certificate for the
// sessiongate auth service, writing them under the "certs" directory.
//
// The server serves HTTPS with certs/server.crt and certs/server.key, and
// the client trusts the service with --ca certs/ca.crt.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/sessiongate/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	validFor := fs.Duration("valid-for", 365*24*time.Hour, "server certificate lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	caCert := filepath.Join(*dir, "ca.crt")
	caKey := filepath.Join(*dir, "ca.key")

	// Reuse an existing CA so clients that already trust it keep working.
	ca, err := certgen.LoadCA(caCert, caKey)
	switch {
	case errors.Is(err, os.ErrNotExist):
		ca, err = certgen.NewCA("sessiongate dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		if err := ca.Write(caCert, caKey); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created CA %s\n", caCert)
	case err != nil:
		return err
	default:
		fmt.Fprintf(stdout, "reusing CA %s\n", caCert)
	}

	srv, err := certgen.NewServerCert(splitHosts(*hosts), ca, *validFor)
	if err != nil {
		return err
	}
	if err := srv.Write(filepath.Join(*dir, "server.crt"), filepath.Join(*dir, "server.key")); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "✅ Certificates generated into %s\n", *dir)
	return nil
}

func splitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
