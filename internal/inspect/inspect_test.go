package inspect

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/lz9168/shaka-packager/pkg/mp4"
)

func box(typ string, payload ...byte) []byte {
	b := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(b, uint32(len(b)))
	copy(b[4:], typ)
	copy(b[8:], payload)
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestTree_NestedContainers(t *testing.T) {
	t.Parallel()

	tkhd := box("tkhd", make([]byte, 12)...)
	trak := box("trak", tkhd...)
	mvhd := box("mvhd", make([]byte, 4)...)
	moov := box("moov", concat(mvhd, trak)...)
	ftyp := box("ftyp", []byte("isom")...)
	data := concat(ftyp, moov)

	nodes, err := Tree(data)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d top-level nodes, want 2", len(nodes))
	}
	if nodes[0].Type != "ftyp" || nodes[0].Offset != 0 || nodes[0].Size != uint64(len(ftyp)) {
		t.Fatalf("ftyp node = %+v", nodes[0])
	}
	m := nodes[1]
	if m.Type != "moov" || m.Offset != int64(len(ftyp)) {
		t.Fatalf("moov node = %+v", m)
	}
	if len(m.Children) != 2 {
		t.Fatalf("moov has %d children, want 2", len(m.Children))
	}
	wantMvhdOff := int64(len(ftyp)) + 8
	if m.Children[0].Type != "mvhd" || m.Children[0].Offset != wantMvhdOff {
		t.Fatalf("mvhd child = %+v, want offset %d", m.Children[0], wantMvhdOff)
	}
	tr := m.Children[1]
	if tr.Type != "trak" || tr.Offset != wantMvhdOff+int64(len(mvhd)) {
		t.Fatalf("trak child = %+v", tr)
	}
	if len(tr.Children) != 1 || tr.Children[0].Type != "tkhd" {
		t.Fatalf("trak children = %+v", tr.Children)
	}
	if tr.Children[0].Offset != tr.Offset+8 {
		t.Fatalf("tkhd offset = %d, want %d", tr.Children[0].Offset, tr.Offset+8)
	}
}

func TestTree_HeaderOnlyMdat(t *testing.T) {
	t.Parallel()

	mdat := make([]byte, 8)
	binary.BigEndian.PutUint32(mdat, 1000)
	copy(mdat[4:], "mdat")
	data := concat(box("ftyp"), mdat, []byte{0xde, 0xad})

	nodes, err := Tree(data)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	last := nodes[1]
	if last.Type != "mdat" || !last.HeaderOnly || last.Size != 1000 {
		t.Fatalf("mdat node = %+v", last)
	}
}

func TestTree_MalformedChildReturnsPartial(t *testing.T) {
	t.Parallel()

	// Second top-level box declares a child larger than its own body.
	bad := box("moov", box("trak", make([]byte, 200)...)[:12]...)
	data := concat(box("ftyp"), bad)

	nodes, err := Tree(data)
	if !errors.Is(err, mp4.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if len(nodes) != 1 || nodes[0].Type != "ftyp" {
		t.Fatalf("partial nodes = %+v", nodes)
	}
}

func TestTree_TruncatedTopLevel(t *testing.T) {
	t.Parallel()

	data := concat(box("ftyp"), box("moov", make([]byte, 40)...)[:20])
	nodes, err := Tree(data)
	if !errors.Is(err, mp4.ErrNotEnoughData) {
		t.Fatalf("err = %v, want ErrNotEnoughData", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("partial nodes = %+v", nodes)
	}
}

func TestTopLevel_DoesNotRecurse(t *testing.T) {
	t.Parallel()

	moov := box("moov", box("mvhd")...)
	nodes, err := TopLevel(moov)
	if err != nil {
		t.Fatalf("TopLevel: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Children != nil {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestEncodeJSON(t *testing.T) {
	t.Parallel()

	nodes, err := Tree(box("moov", box("mvhd")...))
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	out, err := EncodeJSON(nodes)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	for _, want := range []string{`"type": "moov"`, `"type": "mvhd"`, `"offset": 8`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("JSON output missing %q:\n%s", want, out)
		}
	}
	if bytes.Contains(out, []byte("header_only")) {
		t.Fatalf("header_only should be omitted when false:\n%s", out)
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	nodes, err := Tree(box("moov", box("mvhd")...))
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	var sb strings.Builder
	WriteText(&sb, nodes)
	got := sb.String()
	want := "moov offset=0 size=16\n  mvhd offset=8 size=8\n"
	if got != want {
		t.Fatalf("text output = %q, want %q", got, want)
	}
}
