package ulog

import (
	"fmt"
	"strconv"
	"strings"
)

// Registry holds the format definitions seen so far in one decode. It is not
// safe for concurrent use and is never shared between decodes.
type Registry struct {
	formats map[string]*FormatDefinition
	order   []string
	// gen changes on every Define so cached layouts can detect redefinition.
	gen int
}

func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]*FormatDefinition)}
}

// Define parses spec and registers it under name, replacing any previous
// definition with the same name.
func (r *Registry) Define(name, spec string) (*FormatDefinition, error) {
	def, err := ParseFormat(name, spec)
	if err != nil {
		return nil, err
	}
	if _, exists := r.formats[name]; !exists {
		r.order = append(r.order, name)
	}
	r.formats[name] = def
	r.gen++
	return def, nil
}

// Resolve returns the definition registered under name.
func (r *Registry) Resolve(name string) (*FormatDefinition, error) {
	def, ok := r.formats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return def, nil
}

// Names lists registered formats in definition order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ParseFormat parses a field specification such as
// "uint64_t timestamp;float[3] xyz;uint8_t[5] _padding0;". Fields are
// separated by ';' or newlines. The array suffix may sit on the type
// ("float[3] xyz") or on the name ("float xyz[3]"); an empty suffix declares a
// variable-length array.
func ParseFormat(name, spec string) (*FormatDefinition, error) {
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%w: invalid format name %q", ErrMalformedFormat, name)
	}
	def := &FormatDefinition{Name: name}
	seen := make(map[string]struct{})
	tokens := strings.FieldsFunc(spec, func(r rune) bool { return r == ';' || r == '\n' })
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		field, err := parseField(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: format %s: %v", ErrMalformedFormat, name, err)
		}
		if _, dup := seen[field.Name]; dup {
			return nil, fmt.Errorf("%w: format %s: duplicate field %q", ErrMalformedFormat, name, field.Name)
		}
		seen[field.Name] = struct{}{}
		def.Fields = append(def.Fields, field)
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("%w: format %s has no fields", ErrMalformedFormat, name)
	}
	return def, nil
}

func parseField(tok string) (FieldDefinition, error) {
	parts := strings.Fields(tok)
	if len(parts) != 2 {
		return FieldDefinition{}, fmt.Errorf("field %q: want \"type name\"", tok)
	}
	typeTok, typeLen, typeArr, err := splitArraySuffix(parts[0])
	if err != nil {
		return FieldDefinition{}, fmt.Errorf("field %q: %v", tok, err)
	}
	nameTok, nameLen, nameArr, err := splitArraySuffix(parts[1])
	if err != nil {
		return FieldDefinition{}, fmt.Errorf("field %q: %v", tok, err)
	}
	if typeArr && nameArr {
		return FieldDefinition{}, fmt.Errorf("field %q: array length given twice", tok)
	}
	if !isIdentifier(nameTok) {
		return FieldDefinition{}, fmt.Errorf("field %q: invalid name", tok)
	}
	f := FieldDefinition{Name: nameTok, ArrayLen: typeLen}
	if nameArr {
		f.ArrayLen = nameLen
	}
	if t, ok := LookupScalarType(typeTok); ok {
		f.Type = t
	} else if isIdentifier(typeTok) {
		f.Nested = typeTok
	} else {
		return FieldDefinition{}, fmt.Errorf("field %q: unknown type %q", tok, typeTok)
	}
	if f.IsNested() && f.ArrayLen == VariableLength {
		return FieldDefinition{}, fmt.Errorf("field %q: variable-length arrays of nested formats are not supported", tok)
	}
	if f.IsPadding() && (f.IsNested() || f.ArrayLen == VariableLength) {
		return FieldDefinition{}, fmt.Errorf("field %q: padding must be a fixed-size scalar", tok)
	}
	return f, nil
}

// splitArraySuffix splits "float[3]" into ("float", 3, true). A bare "[]"
// yields VariableLength.
func splitArraySuffix(tok string) (string, int, bool, error) {
	open := strings.IndexByte(tok, '[')
	if open < 0 {
		if strings.IndexByte(tok, ']') >= 0 {
			return "", 0, false, fmt.Errorf("unbalanced ']' in %q", tok)
		}
		return tok, 0, false, nil
	}
	if !strings.HasSuffix(tok, "]") || strings.Count(tok, "[") != 1 || strings.Count(tok, "]") != 1 {
		return "", 0, false, fmt.Errorf("malformed array suffix in %q", tok)
	}
	base := tok[:open]
	inner := tok[open+1 : len(tok)-1]
	if inner == "" {
		return base, VariableLength, true, nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil || n <= 0 {
		return "", 0, false, fmt.Errorf("invalid array length %q", inner)
	}
	return base, n, true, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// leaf is one flattened wire element of a format. Padding leaves are skipped
// and never produce a column.
type leaf struct {
	path    string
	typ     ScalarType
	varLen  bool
	padding int
}

// layout is a format flattened against the registry contents at one point in
// time: nested references are inlined and fixed arrays unrolled.
type layout struct {
	format   string
	leaves   []leaf
	paths    []string
	size     int
	variable bool
	// timestamp is the column index of a top-level uint64 "timestamp" field,
	// or -1.
	timestamp int
}

func (r *Registry) layout(name string) (*layout, error) {
	def, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	l := &layout{format: name, timestamp: -1}
	if err := r.flatten(l, def, "", map[string]bool{}); err != nil {
		return nil, err
	}
	for _, lf := range l.leaves {
		if lf.padding > 0 {
			continue
		}
		if lf.path == "timestamp" && lf.typ == TypeUint64 && !lf.varLen {
			l.timestamp = len(l.paths)
		}
		l.paths = append(l.paths, lf.path)
	}
	return l, nil
}

func (r *Registry) flatten(l *layout, def *FormatDefinition, prefix string, active map[string]bool) error {
	if active[def.Name] {
		return fmt.Errorf("%w: format %s refers to itself", ErrMalformedFormat, def.Name)
	}
	active[def.Name] = true
	defer delete(active, def.Name)

	for _, f := range def.Fields {
		if pad := f.Padding(); pad > 0 {
			l.leaves = append(l.leaves, leaf{padding: pad})
			l.size += pad
			continue
		}
		path := prefix + f.Name
		if f.IsNested() {
			nested, err := r.Resolve(f.Nested)
			if err != nil {
				return fmt.Errorf("%w (field %s of %s)", err, f.Name, def.Name)
			}
			if f.ArrayLen == 0 {
				if err := r.flatten(l, nested, path+".", active); err != nil {
					return err
				}
				continue
			}
			for i := 0; i < f.ArrayLen; i++ {
				if err := r.flatten(l, nested, fmt.Sprintf("%s[%d].", path, i), active); err != nil {
					return err
				}
			}
			continue
		}
		switch {
		case f.ArrayLen == VariableLength:
			l.leaves = append(l.leaves, leaf{path: path, typ: f.Type, varLen: true})
			l.size += 2
			l.variable = true
		case f.ArrayLen > 0:
			for i := 0; i < f.ArrayLen; i++ {
				l.leaves = append(l.leaves, leaf{path: fmt.Sprintf("%s[%d]", path, i), typ: f.Type})
			}
			l.size += f.ArrayLen * f.Type.Size()
		default:
			l.leaves = append(l.leaves, leaf{path: path, typ: f.Type})
			l.size += f.Type.Size()
		}
	}
	return nil
}

// WireSize returns the encoded size of one sample of the named format. For
// formats with variable-length fields it is the minimum size and variable is
// true.
func (r *Registry) WireSize(name string) (size int, variable bool, err error) {
	l, err := r.layout(name)
	if err != nil {
		return 0, false, err
	}
	return l.size, l.variable, nil
}

// decodeRow reads one sample into dst, one Value per non-padding leaf.
func (l *layout) decodeRow(c *cursor, dst []Value) ([]Value, error) {
	dst = dst[:0]
	for _, lf := range l.leaves {
		if lf.padding > 0 {
			if _, err := c.readBytes(lf.padding); err != nil {
				return nil, err
			}
			continue
		}
		width := lf.typ.Size()
		if lf.varLen {
			n, err := c.readU16()
			if err != nil {
				return nil, err
			}
			raw, err := c.readBytes(int(n) * width)
			if err != nil {
				return nil, err
			}
			elems := make([]Value, n)
			for i := range elems {
				elems[i] = decodeScalar(lf.typ, raw[i*width:(i+1)*width])
			}
			dst = append(dst, arrayValue(lf.typ, elems))
			continue
		}
		raw, err := c.readBytes(width)
		if err != nil {
			return nil, err
		}
		dst = append(dst, decodeScalar(lf.typ, raw))
	}
	return dst, nil
}
