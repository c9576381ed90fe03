package lsm9ds1

import "testing"

func TestFieldEncodeDecodeAllValues(t *testing.T) {
	bases := []uint8{0x00, 0xFF, 0xA5, 0x5A}
	for _, f := range Fields() {
		for _, b := range bases {
			for v := 0; v <= int(f.Max()); v++ {
				got := f.Encode(b, uint8(v))
				if d := f.Decode(got); d != uint8(v) {
					t.Fatalf("%s: decode(encode(%#02x, %d)) = %d", f.Name, b, v, d)
				}
				if got&^f.Mask() != b&^f.Mask() {
					t.Fatalf("%s: encode(%#02x, %d) = %#02x disturbs bits outside %#02x", f.Name, b, v, got, f.Mask())
				}
			}
		}
	}
}

func TestFieldEncodeTruncatesWideValue(t *testing.T) {
	got := FieldFsG.Encode(0x00, 0xFF)
	if got != FieldFsG.Mask() {
		t.Fatalf("got %#02x, want %#02x", got, FieldFsG.Mask())
	}
	if got := FieldFsG.Encode(0xFF, 0x04); got != 0xE7 {
		t.Fatalf("overflow bit leaked: got %#02x", got)
	}
}

func TestFieldTableShape(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields() {
		if seen[f.Name] {
			t.Fatalf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		if f.Width == 0 || f.Shift+f.Width > 8 {
			t.Fatalf("%s: shift %d width %d does not fit a byte", f.Name, f.Shift, f.Width)
		}
	}
}

func TestFieldByName(t *testing.T) {
	f, ok := FieldByName("CTRL_REG1_G.FS_G")
	if !ok || f != FieldFsG {
		t.Fatalf("lookup: got %+v ok=%v", f, ok)
	}
	if _, ok := FieldByName("NOPE"); ok {
		t.Fatal("unknown name resolved")
	}
}

func TestFieldsReturnsCopy(t *testing.T) {
	fs := Fields()
	fs[0].Name = "changed"
	if Fields()[0].Name == "changed" {
		t.Fatal("Fields exposes the internal table")
	}
}
