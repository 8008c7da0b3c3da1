package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/config"
	"github.com/pumpkit/rfmsg/internal/logging"
)

// session bundles what listen and monitor need for one bridge connection.
type session struct {
	bridge       bridge.Bridge
	catalog      *catalog.Catalog
	registry     *config.Registry
	registryPath string
	capture      *capture.Writer
	record       func(bridge.Packet)
}

func openSession(ctx context.Context) (*session, error) {
	reg, regPath, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(reg)
	if err != nil {
		return nil, err
	}
	w, err := openCapture(reg)
	if err != nil {
		return nil, err
	}
	b, err := openBridge(ctx, reg)
	if err != nil {
		if w != nil {
			_ = w.Close()
		}
		return nil, err
	}

	return &session{
		bridge:       b,
		catalog:      cat,
		registry:     reg,
		registryPath: regPath,
		capture:      w,
		record:       recordPacket(w, reg),
	}, nil
}

func (s *session) params() map[string]string {
	params := map[string]string{
		"Bridge":  s.bridge.String(),
		"Catalog": s.catalog.Source(),
	}
	if s.capture != nil {
		params["Capture"] = s.capture.Path()
	}
	return params
}

// Close closes the bridge and capture file and saves pump last-seen times.
func (s *session) Close() {
	if err := s.bridge.Close(); err != nil {
		logging.Debug("Bridge close", zap.Error(err))
	}
	if s.capture != nil {
		logging.Info("Capture closed",
			zap.String("path", s.capture.Path()),
			zap.Int("records", s.capture.Count()),
		)
		_ = s.capture.Close()
	}
	saveRegistry(s.registry, s.registryPath)
}
