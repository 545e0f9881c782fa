package encryption

import "fmt"

// EventInfo returns the additional-authenticated-data bytes bound to an
// event object: its own filename. Relocating the ciphertext to a different
// event filename makes it fail to decrypt.
func EventInfo(filename string) []byte {
	return []byte(filename)
}

// SegmentInfo returns the additional-authenticated-data bytes bound to a
// segment object: "<camera> <filename>", so moving a segment's ciphertext
// to a different camera or filename also breaks decryption.
func SegmentInfo(camera, filename string) []byte {
	return []byte(fmt.Sprintf("%s %s", camera, filename))
}
