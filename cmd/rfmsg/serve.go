package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/server"
	"github.com/pumpkit/rfmsg/internal/ui"
)

var (
	serveHost  string
	servePort  int
	servePath  string
	serveCert  string
	serveKey   string
	serveUser  string
	serveQuiet bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&servePath, "path", server.DefaultPath, "Websocket endpoint path")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "TLS certificate file (enables TLS together with --key)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "TLS private key file")
	serveCmd.Flags().StringVar(&serveUser, "user", "", "Require HTTP Basic auth from bridges (password from "+bridge.PasswordEnvVar+" or prompt)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "Do not print packets, only log them")
	addCaptureFlags(serveCmd.Flags())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept packets pushed by bridges",
	Long: `Start the ingest server. Bridges connect to the websocket endpoint and push
one packet per message; every packet is decoded, logged, optionally captured
and recorded as the pump's last-seen time.

Stop with Ctrl+C; open sessions are closed and the configuration is saved.`,
	Example: `  # Plain websocket on :8080/packets
  rfmsg serve

  # TLS with Basic auth, capturing to JSON Lines
  rfmsg serve --cert fullchain.pem --key privkey.pem --user bridge --capture-dir ./captures`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if (serveCert == "") != (serveKey == "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, path := range []string{serveCert, serveKey} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}

	reg, regPath, err := loadRegistry()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(reg)
	if err != nil {
		return err
	}
	w, err := openCapture(reg)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	var password string
	if serveUser != "" {
		if password, err = bridge.GetPassword(); err != nil {
			return err
		}
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	cfg := &server.Config{
		Host:         serveHost,
		Port:         servePort,
		Path:         servePath,
		CertPath:     serveCert,
		KeyPath:      serveKey,
		Username:     serveUser,
		Password:     password,
		Catalog:      cat,
		Capture:      w,
		Registry:     reg,
		RegistryPath: regPath,
	}
	if !serveQuiet {
		cfg.OnPacket = func(pkt bridge.Packet) {
			if pkt.Err != nil {
				p.Printf("%s %s %x: %v\n", pkt.Source, ui.FailureMarker, pkt.Raw, pkt.Err)
				return
			}
			p.Printf("%s %s\n", pkt.Source, ui.FormatPacketLine(pkt.Message, pkt.VariantName()))
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	scheme := "ws"
	if serveCert != "" {
		scheme = "wss"
	}
	host := serveHost
	if host == "" {
		host = "0.0.0.0"
	}
	params := map[string]string{
		"Endpoint": fmt.Sprintf("%s://%s:%s%s", scheme, host, strconv.Itoa(servePort), servePath),
		"Catalog":  cat.Source(),
	}
	if w != nil {
		params["Capture"] = w.Path()
	}
	p.PrintHeader("Ingest server", "rfmsg serve", params)

	return srv.Start(cmd.Context())
}
