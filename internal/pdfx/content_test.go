package pdfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanPaints_DoAndInlineInOrder(t *testing.T) {
	stream := []byte(`q 100 0 0 100 0 0 cm /Im1 Do Q
BT /F1 12 Tf (Course Id: \(x\)) Tj ET
q BI /W 2 /H 2 /CS /G /BPC 8 ID ` + "\x00\xff\xff\x00" + ` EI Q
q /Im2 Do Q % trailing comment /Im9 Do
/Im1 Do`)

	paints, err := scanPaints(stream)
	require.NoError(t, err)
	require.Len(t, paints, 4)

	assert.Equal(t, "Im1", paints[0].xobject)
	require.NotNil(t, paints[1].inline)
	assert.Equal(t, []byte{0x00, 0xff, 0xff, 0x00}, paints[1].inline.data)
	assert.Equal(t, "Im2", paints[2].xobject)
	assert.Equal(t, "Im1", paints[3].xobject, "duplicates are removed later, not by the scanner")
}

func TestScanPaints_InlineContainingEIBytes(t *testing.T) {
	// sample bytes spell " EI " but the length is known from the dictionary
	data := []byte{' ', 'E', 'I', ' '}
	stream := append([]byte("BI /W 4 /H 1 /CS /G /BPC 8 ID "), data...)
	stream = append(stream, []byte(" EI /Im1 Do")...)

	paints, err := scanPaints(stream)
	require.NoError(t, err)
	require.Len(t, paints, 2)
	assert.Equal(t, data, paints[0].inline.data)
	assert.Equal(t, "Im1", paints[1].xobject)
}

func TestScanPaints_FilteredInlineFindsDelimiter(t *testing.T) {
	stream := []byte("BI /W 2 /H 1 /F /AHx ID 00ff> EI Q")
	paints, err := scanPaints(stream)
	require.NoError(t, err)
	require.Len(t, paints, 1)
	assert.Equal(t, []byte("00ff>"), paints[0].inline.data)
	assert.Equal(t, name("AHx"), paints[0].inline.dict["F"])
}

func TestScanner_Objects(t *testing.T) {
	s := &scanner{data: []byte(`<< /A [1 -2.5 true] /B <48 65 6c6c 6f> /C (a\101\nb) >> null`)}

	obj, err := s.next()
	require.NoError(t, err)
	d, ok := obj.(map[string]any)
	require.True(t, ok)

	assert.Equal(t, []any{1.0, -2.5, true}, d["A"])
	assert.Equal(t, []byte("Hello"), d["B"])
	assert.Equal(t, []byte("aA\nb"), d["C"])

	obj, err = s.next()
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestInlineLength(t *testing.T) {
	tests := []struct {
		name string
		dict map[string]any
		want int
	}{
		{"rgb", map[string]any{"W": 2.0, "H": 2.0, "CS": name("RGB"), "BPC": 8.0}, 12},
		{"long keys", map[string]any{"Width": 3.0, "Height": 1.0, "ColorSpace": name("DeviceGray"), "BitsPerComponent": 8.0}, 3},
		{"packed bits round up", map[string]any{"W": 9.0, "H": 2.0, "CS": name("G"), "BPC": 1.0}, 4},
		{"image mask", map[string]any{"W": 9.0, "H": 2.0, "IM": true}, 4},
		{"indexed", map[string]any{"W": 4.0, "H": 1.0, "CS": []any{name("I"), name("RGB"), 1.0, []byte{0, 0, 0, 255, 255, 255}}, "BPC": 8.0}, 4},
		{"filtered", map[string]any{"W": 2.0, "H": 2.0, "CS": name("G"), "BPC": 8.0, "F": name("Fl")}, 0},
		{"missing size", map[string]any{"CS": name("G"), "BPC": 8.0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inlineLength(tt.dict))
		})
	}
}

func TestComponentsOf(t *testing.T) {
	assert.Equal(t, 1, componentsOf("G"))
	assert.Equal(t, 3, componentsOf("DeviceRGB"))
	assert.Equal(t, 4, componentsOf("CMYK"))
	assert.Equal(t, 0, componentsOf("Indexed"))
}
