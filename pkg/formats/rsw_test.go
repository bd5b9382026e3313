package formats

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func sampleRSW(v RSWVersion) *RSW {
	return &RSW{
		Version: v,
		IniFile: "prontera.ini",
		GndFile: "prontera.gnd",
		GatFile: "prontera.gat",
		SrcFile: "prontera.src",
		Models: []RSWModel{
			{
				Name:      "fountain01",
				AnimType:  2,
				AnimSpeed: 1,
				BlockType: 1,
				ModelName: "프론테라\\분수.rsm",
				NodeName:  "base",
				Position:  [3]float32{10, -5, 20},
				Rotation:  [3]float32{0, 90, 0},
				Scale:     [3]float32{1, 1, 1},
			},
			{
				ModelName: "wall.rsm",
				Position:  [3]float32{-3, 0, 4},
				Scale:     [3]float32{2, 2, 2},
			},
		},
	}
}

// trimToVersion clears fields the version does not store.
func trimToVersion(w *RSW) {
	if !w.Version.AtLeast(1, 4) {
		w.GatFile, w.SrcFile = "", ""
	}
	if !w.Version.AtLeast(1, 3) {
		for i := range w.Models {
			m := &w.Models[i]
			m.Name, m.AnimType, m.AnimSpeed, m.BlockType = "", 0, 0, 0
		}
	}
}

func TestRSWRoundTrip(t *testing.T) {
	versions := []RSWVersion{
		{1, 2, 0}, {1, 3, 0}, {1, 4, 0}, {1, 5, 0}, {1, 6, 0}, {1, 7, 0}, {1, 9, 0},
		{2, 1, 0}, {2, 2, 5}, {2, 5, 100}, {2, 6, 161}, {2, 6, 197},
	}

	for _, v := range versions {
		t.Run(v.String(), func(t *testing.T) {
			want := sampleRSW(v)
			data, err := want.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			trimToVersion(want)

			got, err := ParseRSW(data)
			if err != nil {
				t.Fatalf("ParseRSW: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
			}
		})
	}
}

func rswObject(t RSWObjectType, size int) []byte {
	b := binary.LittleEndian.AppendUint32(nil, uint32(t))
	return append(b, make([]byte, size)...)
}

// withObjects replaces the object list of an encoded world holding no
// models with objects.
func withObjects(t *testing.T, v RSWVersion, count int, objects ...[]byte) []byte {
	t.Helper()
	data, err := (&RSW{Version: v}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	data = binary.LittleEndian.AppendUint32(data[:len(data)-4], uint32(count))
	for _, o := range objects {
		data = append(data, o...)
	}
	return data
}

func modelObject(t *testing.T, v RSWVersion, m RSWModel) []byte {
	t.Helper()
	empty, err := (&RSW{Version: v}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	full, err := (&RSW{Version: v, Models: []RSWModel{m}}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return full[len(empty):]
}

func TestRSWSkipsOtherObjects(t *testing.T) {
	tests := []struct {
		version   RSWVersion
		soundSize int
	}{
		{RSWVersion{1, 9, 0}, rswSoundObjectSize},
		{RSWVersion{2, 0, 0}, rswSoundObjectSize + 4},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			model := RSWModel{Name: "gate", ModelName: "gate.rsm", Scale: [3]float32{1, 1, 1}}
			data := withObjects(t, tt.version, 5,
				rswObject(RSWObjectLight, rswLightObjectSize),
				rswObject(RSWObjectSound, tt.soundSize),
				modelObject(t, tt.version, model),
				rswObject(RSWObjectEffect, rswEffectObjectSize),
				rswObject(RSWObjectLight, rswLightObjectSize),
			)

			w, err := ParseRSW(data)
			if err != nil {
				t.Fatalf("ParseRSW: %v", err)
			}
			if len(w.Models) != 1 || !reflect.DeepEqual(w.Models[0], model) {
				t.Errorf("Models = %+v, want [%+v]", w.Models, model)
			}
			wantSkipped := map[RSWObjectType]int{RSWObjectLight: 2, RSWObjectSound: 1, RSWObjectEffect: 1}
			if !reflect.DeepEqual(w.Skipped, wantSkipped) {
				t.Errorf("Skipped = %v, want %v", w.Skipped, wantSkipped)
			}
		})
	}
}

func TestParseRSWErrors(t *testing.T) {
	v := RSWVersion{Major: 2, Minor: 1}
	good, err := sampleRSW(v).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	version := func(major, minor byte) []byte {
		d := append([]byte(nil), good...)
		d[4], d[5] = major, minor
		return d
	}
	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncatedRSWData},
		{"short", []byte("GRS"), ErrTruncatedRSWData},
		{"magic", badMagic, ErrInvalidRSWMagic},
		{"v0.1", version(0, 1), ErrUnsupportedRSWVersion},
		{"v1.1", version(1, 1), ErrUnsupportedRSWVersion},
		{"v2.7", version(2, 7), ErrUnsupportedRSWVersion},
		{"v3.0", version(3, 0), ErrUnsupportedRSWVersion},
		{"truncated header", good[:50], ErrTruncatedRSWData},
		{"truncated model", good[:len(good)-5], ErrTruncatedRSWData},
		{"negative count", withObjects(t, v, -1), ErrInvalidCount},
		{"unknown object", withObjects(t, v, 1, rswObject(9, 0)), ErrUnknownObjectType},
		{"truncated light", withObjects(t, v, 1, rswObject(RSWObjectLight, 10)), ErrTruncatedRSWData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSW(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRSWMarshalUnsupportedVersion(t *testing.T) {
	_, err := (&RSW{Version: RSWVersion{Major: 3}}).MarshalBinary()
	if !errors.Is(err, ErrUnsupportedRSWVersion) {
		t.Errorf("err = %v, want ErrUnsupportedRSWVersion", err)
	}
}

func TestRSWVersionString(t *testing.T) {
	tests := []struct {
		version RSWVersion
		want    string
	}{
		{RSWVersion{2, 1, 0}, "2.1"},
		{RSWVersion{2, 6, 197}, "2.6.197"},
		{RSWVersion{1, 9, 0}, "1.9"},
	}
	for _, tt := range tests {
		if got := tt.version.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRSWObjectTypeString(t *testing.T) {
	tests := []struct {
		typ  RSWObjectType
		want string
	}{
		{RSWObjectModel, "model"},
		{RSWObjectLight, "light"},
		{RSWObjectSound, "sound"},
		{RSWObjectEffect, "effect"},
		{7, "unknown(7)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
