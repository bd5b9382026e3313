package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Faultbox/midgard-ply/pkg/encoding"
)

type testFile struct {
	name  string // UTF-8, any slash direction
	data  []byte
	store bool // write uncompressed
	dir   bool
	flags uint8
}

// buildArchive lays out a GRF 0x200 archive: header, aligned entry data,
// then the compressed file table.
func buildArchive(t *testing.T, files []testFile) []byte {
	t.Helper()

	var body, table bytes.Buffer
	for _, f := range files {
		payload := f.data
		if !f.store {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			zw.Write(f.data)
			zw.Close()
			payload = z.Bytes()
		}
		aligned := (len(payload) + 7) &^ 7

		flags := f.flags
		if flags == 0 && !f.dir {
			flags = flagFile
		}

		table.Write(encoding.EncodeEUCKR(f.name))
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(payload)))
		binary.Write(&table, binary.LittleEndian, uint32(aligned))
		binary.Write(&table, binary.LittleEndian, uint32(len(f.data)))
		table.WriteByte(flags)
		binary.Write(&table, binary.LittleEndian, uint32(body.Len()))

		body.Write(payload)
		body.Write(make([]byte, aligned-len(payload)))
	}

	var zt bytes.Buffer
	zw := zlib.NewWriter(&zt)
	zw.Write(table.Bytes())
	zw.Close()

	var out bytes.Buffer
	hdr := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     version200,
	}
	copy(hdr.Magic[:], magic)
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(zt.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(zt.Bytes())
	return out.Bytes()
}

var sampleFiles = []testFile{
	{name: "data\\model\\Wall.rsm", data: []byte("GRSM model bytes")},
	{name: "data\\model\\프론테라\\집.rsm", data: bytes.Repeat([]byte("house"), 100)},
	{name: "data\\readme.txt", data: []byte("stored"), store: true},
	{name: "data\\secret.rsm", data: []byte("x"), flags: flagFile | 0x02},
	{name: "data\\folder", dir: true},
}

func TestArchiveRead(t *testing.T) {
	a, err := NewArchive(bytes.NewReader(buildArchive(t, sampleFiles)))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	tests := []struct {
		path string
		want []byte
	}{
		{"data/model/wall.rsm", []byte("GRSM model bytes")},
		{"DATA\\MODEL\\WALL.RSM", []byte("GRSM model bytes")},
		{"data/model/프론테라/집.rsm", bytes.Repeat([]byte("house"), 100)},
		{"data/readme.txt", []byte("stored")},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := a.Read(tt.path)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Read = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArchiveErrors(t *testing.T) {
	a, err := NewArchive(bytes.NewReader(buildArchive(t, sampleFiles)))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	if _, err := a.Read("data/missing.rsm"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file: err = %v, want ErrNotFound", err)
	}
	if _, err := a.Read("data/secret.rsm"); !errors.Is(err, ErrEncrypted) {
		t.Errorf("encrypted file: err = %v, want ErrEncrypted", err)
	}
	if a.Contains("data/folder") {
		t.Error("directory entries are not files")
	}
}

func TestArchiveList(t *testing.T) {
	a, err := NewArchive(bytes.NewReader(buildArchive(t, sampleFiles)))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	want := []string{
		"data/model/wall.rsm",
		"data/model/프론테라/집.rsm",
		"data/readme.txt",
		"data/secret.rsm",
	}
	if got := a.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if !a.Contains("Data/Model/Wall.RSM") {
		t.Error("Contains is case-insensitive")
	}
}

func TestNewArchiveRejectsBadInput(t *testing.T) {
	good := buildArchive(t, sampleFiles)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badVersion[42:], 0x103)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", good[:10], ErrCorrupt},
		{"magic", badMagic, ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"truncated table", good[:len(good)-5], ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArchive(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := os.WriteFile(path, buildArchive(t, sampleFiles), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if _, err := a.Read("data/model/wall.rsm"); err != nil {
		t.Errorf("Read: %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	files := []File{
		{Name: "data/model/Wall.rsm", Data: bytes.Repeat([]byte("wall"), 200)},
		{Name: "data\\model\\프론테라\\집.rsm", Data: []byte("x")},
		{Name: "data/empty.txt"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, files); err != nil {
		t.Fatalf("Write: %v", err)
	}
	a, err := NewArchive(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}

	want := []string{"data/empty.txt", "data/model/wall.rsm", "data/model/프론테라/집.rsm"}
	if got := a.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	for _, f := range files {
		got, err := a.Read(f.Name)
		if err != nil {
			t.Fatalf("Read(%s): %v", f.Name, err)
		}
		if !bytes.Equal(got, f.Data) {
			t.Errorf("Read(%s) = %q, want %q", f.Name, got, f.Data)
		}
	}

	wall, _ := a.Stat("data/model/wall.rsm")
	if wall.CompressedSize >= wall.UncompressedSize {
		t.Errorf("wall.rsm stored with %d of %d bytes, want compressed", wall.CompressedSize, wall.UncompressedSize)
	}
	house, _ := a.Stat("data/model/프론테라/집.rsm")
	if house.CompressedSize != house.UncompressedSize {
		t.Errorf("small entry should be stored, got %d of %d bytes", house.CompressedSize, house.UncompressedSize)
	}
}
