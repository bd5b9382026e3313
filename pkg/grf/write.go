package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

// File is one entry handed to Write.
type File struct {
	Name string // stored as EUC-KR with backslashes
	Data []byte
}

// Write lays out a GRF 0x200 archive holding files. Entries are zlib
// compressed unless compression does not shrink them.
func Write(w io.Writer, files []File) error {
	var body, table bytes.Buffer
	for _, f := range files {
		payload, err := deflate(f.Data)
		if err != nil {
			return err
		}
		if len(payload) >= len(f.Data) {
			payload = f.Data
		}
		aligned := (len(payload) + 7) &^ 7
		if int64(body.Len())+int64(aligned) > math.MaxUint32 {
			return fmt.Errorf("grf: archive too large at %s", f.Name)
		}

		table.Write(encoding.EncodeEUCKR(toArchivePath(f.Name)))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(payload)))
		binary.Write(&table, binary.LittleEndian, uint32(aligned))
		binary.Write(&table, binary.LittleEndian, uint32(len(f.Data)))
		table.WriteByte(flagFile)
		binary.Write(&table, binary.LittleEndian, uint32(body.Len()))

		body.Write(payload)
		body.Write(make([]byte, aligned-len(payload)))
	}

	zt, err := deflate(table.Bytes())
	if err != nil {
		return err
	}

	hdr := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     version200,
	}
	copy(hdr.Magic[:], magic)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(len(zt)))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(zt)

	_, err = out.WriteTo(w)
	return err
}

func deflate(data []byte) ([]byte, error) {
	var b bytes.Buffer
	zw := zlib.NewWriter(&b)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func toArchivePath(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '/' {
			b[i] = '\\'
		}
	}
	return string(b)
}
