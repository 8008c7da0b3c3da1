// Package config provides user configuration management for rfmsg.
//
// This package manages a YAML configuration file that stores metadata for
// the pumps rfmsg has heard (nickname, model, when and through which bridge
// a packet last arrived) and application preferences such as the message
// catalog path and default bridge endpoints.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/rfmsg/config.yaml or $HOME/.config/rfmsg/config.yaml
//   - macOS: $HOME/.config/rfmsg/config.yaml
//   - Windows: %LOCALAPPDATA%\rfmsg\config.yaml
//
// # Security
//
// Bridge passwords are never written to this file. They come from
// RFMSG_BRIDGE_PASSWORD or an interactive prompt.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    return err
//	}
//	registry.SetPumpNickname("a1b2c3", "Night pump")
//	if err := registry.Save(); err != nil {
//	    return err
//	}
//
// # File Format
//
//	version: 1
//	pumps:
//	  a1b2c3:
//	    nickname: Night pump
//	    model: "522"
//	    last_seen: 2025-03-01T12:00:00Z
//	    last_bridge: ws://rfbridge.local:8080/packets
//	preferences:
//	  catalog_path: /etc/rfmsg/catalog.yaml
//	  serial_baud: 115200
//	  discover_timeout: 5
//	  capture_format: jsonl
//
// # Thread Safety
//
// Registry methods lock internally, so the ingest server can record
// last-seen times from many connections at once. File writes are
// serialized and atomic (write to a temporary file, then rename).
package config
