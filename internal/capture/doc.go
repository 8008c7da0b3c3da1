// Package capture records decoded packets for later analysis and replay.
//
// Records are appended either as JSON Lines (one object per line, easy to
// grep and feed to jq) or as a CBOR sequence (compact, integer-keyed). A
// session writes to capture-YYYYMMDD-HHMMSS.{jsonl,cbor} in the capture
// directory; ReadFile infers the format from the extension.
//
//	w, err := capture.Create(dir, capture.FormatJSONL, time.Now())
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	w.Write(capture.NewRecord(time.Now(), bridgeURL, capture.DirectionRX, msg))
package capture
