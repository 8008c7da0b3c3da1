// Package catalog maps identity bytes to message variants.
//
// A catalog is a YAML document listing variants. Each variant names the
// message type (and optionally the packet type) it applies to, the outbound
// buffer length and the bit-field table of its body:
//
//	version: 1
//	variants:
//	  - name: button_press
//	    message_type: ButtonPress
//	    packet_type: Carelink
//	    length: 7
//	    bits_offset: 40
//	    fields:
//	      button: {offset: 0, width: 8}
//
// Types may be given by name or as hex ("0x5b"). A starter catalog is
// embedded and returned by Default; Load replaces it with a file.
package catalog
