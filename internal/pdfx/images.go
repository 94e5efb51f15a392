// Package pdfx reads uploaded PDF documents: the raster images painted on a
// page and the plain text of every page.
package pdfx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/tiff"

	"github.com/kwarc/cheatsheets/internal/pixels"
)

var (
	ErrUnreadable   = errors.New("unreadable pdf")
	ErrTooManyPages = errors.New("pdf has too many pages")
	ErrNoSuchPage   = errors.New("pdf page does not exist")
)

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 4

// Image is one raster painted on a page, in paint order.
type Image struct {
	// Key identifies the source: "obj:<n>" for indirect XObjects,
	// "inline:<i>" for inline images.
	Key string
	pixels.Raw
}

// PageImages returns the de-duplicated images painted on pageNr (1-based),
// following form XObjects. Images pdfcpu cannot render (JPX, JBIG2) and
// images over the pixel budget are skipped.
func PageImages(ctx context.Context, data []byte, pageNr int) ([]Image, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if pageNr < 1 || pageNr > pctx.PageCount {
		return nil, ErrNoSuchPage
	}

	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return nil, fmt.Errorf("%w: page content: %v", ErrUnreadable, err)
	}
	var content []byte
	if r != nil {
		if content, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("%w: page content: %v", ErrUnreadable, err)
		}
	}

	_, _, inh, err := pctx.PageDict(pageNr, true)
	if err != nil {
		return nil, fmt.Errorf("%w: page dict: %v", ErrUnreadable, err)
	}
	var res types.Dict
	if inh != nil {
		res = inh.Resources
	}

	w := &walker{ctx: ctx, pdf: pctx, seen: map[string]bool{}}
	if err := w.walk(content, res, 0); err != nil {
		return nil, err
	}
	return w.images, nil
}

type walker struct {
	ctx     context.Context
	pdf     *model.Context
	seen    map[string]bool
	images  []Image
	inlines int
}

func (w *walker) walk(content []byte, res types.Dict, depth int) error {
	paints, err := scanPaints(content)
	if err != nil && len(paints) == 0 {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	for _, p := range paints {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if p.inline != nil {
			w.inlines++
			sd := w.inlineStream(p.inline, res)
			key := fmt.Sprintf("inline:%d", w.inlines)
			if raw, ok := w.render(sd, key, 0); ok {
				w.images = append(w.images, Image{Key: key, Raw: raw})
			}
			continue
		}
		if err := w.xobject(p.xobject, res, depth); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) xobject(resName string, res types.Dict, depth int) error {
	xobjs := w.subDict(res, "XObject")
	if xobjs == nil {
		return nil
	}
	o, found := xobjs.Find(resName)
	if !found {
		return nil
	}

	key := "name:" + resName
	objNr := 0
	if ref, ok := o.(types.IndirectRef); ok {
		objNr = ref.ObjectNumber.Value()
		key = fmt.Sprintf("obj:%d", objNr)
	}
	if w.seen[key] {
		return nil
	}
	w.seen[key] = true

	sd, _, err := w.pdf.DereferenceStreamDict(o)
	if err != nil || sd == nil {
		return nil
	}

	subtype := sd.NameEntry("Subtype")
	switch {
	case subtype != nil && *subtype == "Image":
		if raw, ok := w.render(sd, resName, objNr); ok {
			w.images = append(w.images, Image{Key: key, Raw: raw})
		}
	case subtype != nil && *subtype == "Form" && depth < maxFormDepth:
		if err := sd.Decode(); err != nil {
			return nil
		}
		formRes := w.subDict(sd.Dict, "Resources")
		if formRes == nil {
			formRes = res
		}
		return w.walk(sd.Content, formRes, depth+1)
	}
	return nil
}

func (w *walker) subDict(d types.Dict, key string) types.Dict {
	if d == nil {
		return nil
	}
	o, found := d.Find(key)
	if !found {
		return nil
	}
	sub, err := w.pdf.DereferenceDict(o)
	if err != nil {
		return nil
	}
	return sub
}

// render decodes an image stream through pdfcpu into raw RGBA samples. The
// stream is cloned so the document's own objects stay untouched.
func (w *walker) render(src *types.StreamDict, resName string, objNr int) (pixels.Raw, bool) {
	if src == nil {
		return pixels.Raw{}, false
	}
	if !pixels.WithinBudget(w.intEntry(src.Dict, "Width"), w.intEntry(src.Dict, "Height"), 1) {
		return pixels.Raw{}, false
	}

	sd := src.Clone().(types.StreamDict)
	if len(sd.FilterPipeline) == 0 {
		sd.FilterPipeline = nil
	}
	if mask := sd.BooleanEntry("ImageMask"); mask != nil && *mask {
		// stencil masks paint 0 samples; read them as 1-bit gray
		sd.Dict["BitsPerComponent"] = types.Integer(1)
		sd.Dict["ColorSpace"] = types.Name(model.DeviceGrayCS)
	}
	if _, found := sd.Find("BitsPerComponent"); !found {
		sd.Dict["BitsPerComponent"] = types.Integer(8)
	}
	if !dctWithinBudget(&sd) {
		return pixels.Raw{}, false
	}

	im, err := extractImage(w.pdf, &sd, resName, objNr)
	if err != nil || im == nil || im.Reader == nil {
		return pixels.Raw{}, false
	}
	return decodeRendered(im.Reader)
}

// extractImage runs pdfcpu's renderer, which dereferences dictionary
// entries without checks and panics on malformed image objects.
func extractImage(pdf *model.Context, sd *types.StreamDict, resName string, objNr int) (im *model.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			im, err = nil, fmt.Errorf("%w: image %s: %v", ErrUnreadable, resName, r)
		}
	}()
	return pdfcpu.ExtractImage(pdf, sd, false, resName, objNr, false)
}

// dctWithinBudget checks the frame size of a JPEG stream, which may differ
// from the declared /Width and /Height.
func dctWithinBudget(sd *types.StreamDict) bool {
	n := len(sd.FilterPipeline)
	if n == 0 || sd.FilterPipeline[n-1].Name != filter.DCT {
		return true
	}
	if n > 1 {
		return false
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(sd.Raw))
	return err == nil && pixels.WithinBudget(cfg.Width, cfg.Height, 1)
}

// decodeRendered decodes the PNG, JPEG or TIFF produced by pdfcpu.
func decodeRendered(r io.Reader) (pixels.Raw, bool) {
	data, err := io.ReadAll(r)
	if err != nil {
		return pixels.Raw{}, false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || !pixels.WithinBudget(cfg.Width, cfg.Height, 1) {
		return pixels.Raw{}, false
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return pixels.Raw{}, false
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return pixels.Raw{Width: b.Dx(), Height: b.Dy(), Data: dst.Pix}, true
}

func (w *walker) intEntry(d types.Dict, key string) int {
	o, found := d.Find(key)
	if !found {
		return 0
	}
	i, err := w.pdf.DereferenceInteger(o)
	if err != nil || i == nil {
		return 0
	}
	return i.Value()
}

var (
	inlineKeys = map[string]string{
		"W":   "Width",
		"H":   "Height",
		"BPC": "BitsPerComponent",
		"CS":  "ColorSpace",
		"F":   "Filter",
		"DP":  "DecodeParms",
		"D":   "Decode",
		"IM":  "ImageMask",
		"I":   "Interpolate",
	}
	inlineNames = map[string]string{
		"G":    model.DeviceGrayCS,
		"RGB":  model.DeviceRGBCS,
		"CMYK": model.DeviceCMYKCS,
		"I":    model.IndexedCS,
		"AHx":  filter.ASCIIHex,
		"A85":  filter.ASCII85,
		"LZW":  filter.LZW,
		"Fl":   filter.Flate,
		"RL":   filter.RunLength,
		"CCF":  filter.CCITTFax,
		"DCT":  filter.DCT,
	}
)

// inlineStream rebuilds a BI/ID/EI block as an image stream dict with the
// abbreviations expanded. A colour space given by resource name is resolved
// against the page's /ColorSpace resources.
func (w *walker) inlineStream(in *inlineImage, res types.Dict) *types.StreamDict {
	d := types.NewDict()
	for k, v := range in.dict {
		if long, ok := inlineKeys[k]; ok {
			k = long
		}
		if o := inlineObject(v); o != nil {
			d[k] = o
		}
	}

	if cs, ok := d["ColorSpace"].(types.Name); ok && componentsOf(cs.Value()) == 0 {
		if named := w.subDict(res, "ColorSpace"); named != nil {
			if def, found := named.Find(cs.Value()); found {
				d["ColorSpace"] = def
			}
		}
	}

	sd := types.NewStreamDict(d, 0, nil, nil, inlinePipeline(d))
	sd.Raw = in.data
	return &sd
}

func inlinePipeline(d types.Dict) []types.PDFFilter {
	var names []types.Name
	switch f := d["Filter"].(type) {
	case types.Name:
		names = []types.Name{f}
	case types.Array:
		for _, o := range f {
			if n, ok := o.(types.Name); ok {
				names = append(names, n)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}

	parms := make([]types.Dict, len(names))
	switch p := d["DecodeParms"].(type) {
	case types.Dict:
		parms[0] = p
	case types.Array:
		for i, o := range p {
			if pd, ok := o.(types.Dict); ok && i < len(parms) {
				parms[i] = pd
			}
		}
	}

	fpl := make([]types.PDFFilter, len(names))
	for i, n := range names {
		fpl[i] = types.PDFFilter{Name: n.Value(), DecodeParms: parms[i]}
	}
	return fpl
}

// inlineObject converts a content stream operand into a PDF object.
func inlineObject(v any) types.Object {
	switch x := v.(type) {
	case name:
		if long, ok := inlineNames[string(x)]; ok {
			return types.Name(long)
		}
		return types.Name(x)
	case float64:
		if x == math.Trunc(x) {
			return types.Integer(int(x))
		}
		return types.Float(x)
	case bool:
		return types.Boolean(x)
	case []byte:
		return types.NewHexLiteral(x)
	case []any:
		arr := types.Array{}
		for _, e := range x {
			if o := inlineObject(e); o != nil {
				arr = append(arr, o)
			}
		}
		return arr
	case map[string]any:
		d := types.NewDict()
		for k, e := range x {
			if o := inlineObject(e); o != nil {
				d[k] = o
			}
		}
		return d
	}
	return nil
}
