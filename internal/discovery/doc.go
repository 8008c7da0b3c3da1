// Package discovery finds radio bridges on the local network over mDNS.
//
// Bridges advertise the "_rfbridge._tcp" service in "local.". Each answer
// becomes a Bridge carrying its address, port and TXT metadata, and
// WebSocketURL turns it into the endpoint the bridge client dials.
//
// # Usage Example
//
//	bridges, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, b := range bridges {
//	    fmt.Println(b.Name, b.WebSocketURL())
//	}
//
// # TXT Records
//
//   - path: websocket path (default "/packets")
//   - tls: "1" when the bridge serves wss
//   - radio, fw: informational, shown by "rfmsg discover"
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
