// Package recordio implements the binary record format used by the log
// files: each record is a key and a value, both length-prefixed with an
// 8-byte little-endian unsigned integer. There is no magic number, version
// tag or checksum; the format is exactly the four fields, repeated until
// end of file.
//
// Basic usage:
//
//	// Writing a record
//	var buf bytes.Buffer
//	n, err := recordio.Write(&buf, recordio.Record{
//	    Key:   []byte("key1"),
//	    Value: []byte("value1"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Scanning records with their starting offsets
//	for offset, rec := range recordio.Entries(&buf) {
//	    fmt.Printf("%d: %s\n", offset, rec.Key)
//	}
//
//	// Calculate record size
//	size := recordio.Size(rec)
package recordio
