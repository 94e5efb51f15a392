package pdfx

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
)

// Content stream objects as produced by scanner.next.
type (
	name    string
	keyword string
)

var errMalformed = errors.New("malformed content stream")

// scanner tokenizes a page content stream into operands and operators.
// Strings come back as []byte, arrays as []any, dictionaries as
// map[string]any, numbers as float64.
type scanner struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		if !isWhite(c) {
			return
		}
		s.pos++
	}
}

func (s *scanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *scanner) next() (any, error) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return nil, io.EOF
	}

	c := s.data[s.pos]
	switch {
	case c == '/':
		s.pos++
		return name(s.regular()), nil
	case c == '(':
		s.pos++
		return s.literal()
	case c == '<' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '<':
		s.pos += 2
		return s.dict()
	case c == '<':
		s.pos++
		return s.hexString()
	case c == '[':
		s.pos++
		return s.array()
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		s.pos++
		return keyword(string(c)), nil
	}

	tok := s.regular()
	if tok == "" {
		s.pos++
		return nil, errMalformed
	}
	if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			return f, nil
		}
	}
	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	return keyword(tok), nil
}

func (s *scanner) array() ([]any, error) {
	var out []any
	for {
		s.skipSpace()
		if s.pos >= len(s.data) {
			return nil, errMalformed
		}
		if s.data[s.pos] == ']' {
			s.pos++
			return out, nil
		}
		v, err := s.next()
		if err != nil {
			return nil, errMalformed
		}
		out = append(out, v)
	}
}

func (s *scanner) dict() (map[string]any, error) {
	out := map[string]any{}
	for {
		s.skipSpace()
		if s.pos+1 < len(s.data) && s.data[s.pos] == '>' && s.data[s.pos+1] == '>' {
			s.pos += 2
			return out, nil
		}
		k, err := s.next()
		if err != nil {
			return nil, errMalformed
		}
		key, ok := k.(name)
		if !ok {
			return nil, errMalformed
		}
		v, err := s.next()
		if err != nil {
			return nil, errMalformed
		}
		out[string(key)] = v
	}
}

func (s *scanner) literal() ([]byte, error) {
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
		case '\\':
			if s.pos >= len(s.data) {
				return nil, errMalformed
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '\r', '\n':
				if e == '\r' && s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					c = byte(v)
				} else {
					c = e
				}
			}
		}
		out = append(out, c)
	}
	return nil, errMalformed
}

func (s *scanner) hexString() ([]byte, error) {
	var digits []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			return hex.DecodeString(string(digits))
		}
		if !isWhite(c) {
			digits = append(digits, c)
		}
	}
	return nil, errMalformed
}

// inlineImage is a BI ... ID ... EI block.
type inlineImage struct {
	dict map[string]any
	data []byte
}

// readInline is called right after the BI operator.
func (s *scanner) readInline() (*inlineImage, error) {
	dict := map[string]any{}
	for {
		k, err := s.next()
		if err != nil {
			return nil, errMalformed
		}
		if kw, ok := k.(keyword); ok && kw == "ID" {
			break
		}
		key, ok := k.(name)
		if !ok {
			return nil, errMalformed
		}
		v, err := s.next()
		if err != nil {
			return nil, errMalformed
		}
		dict[string(key)] = v
	}

	// exactly one white-space byte separates ID from the data
	if s.pos < len(s.data) && isWhite(s.data[s.pos]) {
		s.pos++
	}
	start := s.pos

	if n := inlineLength(dict); n > 0 && start+n <= len(s.data) {
		end := start + n
		rest := s.data[end:]
		i := 0
		for i < len(rest) && isWhite(rest[i]) {
			i++
		}
		if bytes.HasPrefix(rest[i:], []byte("EI")) {
			s.pos = end + i + 2
			return &inlineImage{dict: dict, data: s.data[start:end]}, nil
		}
	}

	for i := start; i+2 <= len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhite(s.data[i-1]) {
			continue
		}
		if i+2 < len(s.data) && !isWhite(s.data[i+2]) && !isDelim(s.data[i+2]) {
			continue
		}
		end := i
		if end > start && isWhite(s.data[end-1]) {
			end--
		}
		s.pos = i + 2
		return &inlineImage{dict: dict, data: s.data[start:end]}, nil
	}
	return nil, errMalformed
}

// inlineLength computes the byte length of unfiltered inline data, or 0 when
// it cannot be known up front.
func inlineLength(d map[string]any) int {
	if _, filtered := lookup(d, "F", "Filter"); filtered {
		return 0
	}
	w := intOf(lookupOr(d, "W", "Width"))
	h := intOf(lookupOr(d, "H", "Height"))
	bpc := intOf(lookupOr(d, "BPC", "BitsPerComponent"))
	comps := 1
	if mask, _ := lookupOr(d, "IM", "ImageMask").(bool); mask {
		bpc = 1
	} else if cs, ok := lookup(d, "CS", "ColorSpace"); ok {
		comps = inlineComponents(cs)
	}
	if w <= 0 || h <= 0 || bpc <= 0 || comps <= 0 {
		return 0
	}
	return h * ((w*comps*bpc + 7) / 8)
}

func inlineComponents(cs any) int {
	switch v := cs.(type) {
	case name:
		return componentsOf(string(v))
	case []any:
		if len(v) > 0 {
			if n, ok := v[0].(name); ok && (n == "I" || n == "Indexed") {
				return 1
			}
		}
	}
	return 0
}

func lookup(d map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := d[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func lookupOr(d map[string]any, keys ...string) any {
	v, _ := lookup(d, keys...)
	return v
}

func intOf(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

// paint is one image painting operation found in a content stream.
type paint struct {
	xobject string
	inline  *inlineImage
}

// scanPaints lists Do operands and inline images in stream order.
func scanPaints(content []byte) ([]paint, error) {
	s := &scanner{data: content}
	var operands []any
	var out []paint
	for {
		obj, err := s.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			// skip garbage and keep going; producers are sloppy
			operands = operands[:0]
			continue
		}
		kw, ok := obj.(keyword)
		if !ok {
			operands = append(operands, obj)
			continue
		}
		switch kw {
		case "Do":
			if len(operands) > 0 {
				if n, ok := operands[len(operands)-1].(name); ok {
					out = append(out, paint{xobject: string(n)})
				}
			}
		case "BI":
			img, err := s.readInline()
			if err != nil {
				return out, err
			}
			out = append(out, paint{inline: img})
		}
		operands = operands[:0]
	}
}

// componentsOf maps a colour space name (full or inline abbreviation) to its
// component count. Unknown names yield 0.
func componentsOf(cs string) int {
	switch cs {
	case "DeviceGray", "G", "CalGray", "Separation", "Pattern":
		return 1
	case "DeviceRGB", "RGB", "CalRGB", "Lab":
		return 3
	case "DeviceCMYK", "CMYK":
		return 4
	}
	return 0
}
