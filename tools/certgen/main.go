// Package main writes development TLS material for the crowdfunding server:
// a local CA and a server certificate signed by it.
//
//	go run ./tools/certgen -dir certs -hosts localhost,127.0.0.1
//	crowdfund-server -tls-cert certs/server.crt -tls-key certs/server.key
//	crowdfund --url https://localhost:8080 --ca certs/ca.crt stats
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/crowdfund/internal/certgen"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	reuse := fs.Bool("reuse-ca", true, "sign with an existing CA in dir when present")
	if err := fs.Parse(args); err != nil {
		return err
	}

	caCert, caKey := filepath.Join(*dir, "ca.crt"), filepath.Join(*dir, "ca.key")
	ca, err := authority(caCert, caKey, *reuse)
	if err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}
	server, err := ca.IssueServer(names)
	if err != nil {
		return err
	}
	if err := server.Write(filepath.Join(*dir, "server.crt"), filepath.Join(*dir, "server.key")); err != nil {
		return err
	}

	fmt.Printf("Certificates generated into %s\n", *dir)
	return nil
}

// authority loads the CA from disk when reuse is set and both files exist,
// otherwise it creates and writes a new one.
func authority(certPath, keyPath string, reuse bool) (*certgen.Authority, error) {
	if reuse {
		if _, err := os.Stat(certPath); err == nil {
			return certgen.LoadAuthority(certPath, keyPath)
		}
	}
	ca, err := certgen.NewAuthority("crowdfund dev CA")
	if err != nil {
		return nil, err
	}
	pair, err := ca.Pair()
	if err != nil {
		return nil, err
	}
	if err := pair.Write(certPath, keyPath); err != nil {
		return nil, err
	}
	return ca, nil
}
