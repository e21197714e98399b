package ulog

import "fmt"

// LoggedMessage is a text message written by the autopilot. Tag is only
// meaningful when Tagged is set.
type LoggedMessage struct {
	Timestamp uint64
	Level     LogLevel
	Message   string
	Tag       uint16
	Tagged    bool
}

// ParameterChange records a parameter write after logging of data started.
// Timestamp is the absolute logger time of the most recent data sample (the
// header timestamp when none carried one yet).
type ParameterChange struct {
	Timestamp uint64
	Name      string
	Value     Value
}

// Dataset holds every sample of one (format, multi-instance) pair. Columns are
// keyed by dotted field path and rows are in stream order.
type Dataset struct {
	name    string
	multiID uint8
	paths   []string
	columns [][]Value
	rows    int
}

func (d *Dataset) Name() string { return d.name }

func (d *Dataset) MultiID() uint8 { return d.multiID }

// Len is the number of samples. A format made only of padding still counts
// its samples even though it has no columns.
func (d *Dataset) Len() int { return d.rows }

// FieldNames returns the field paths in format order.
func (d *Dataset) FieldNames() []string {
	out := make([]string, len(d.paths))
	copy(out, d.paths)
	return out
}

// Field returns a copy of the samples for one field path.
func (d *Dataset) Field(path string) ([]Value, bool) {
	for i, p := range d.paths {
		if p == path {
			out := make([]Value, len(d.columns[i]))
			copy(out, d.columns[i])
			return out, true
		}
	}
	return nil, false
}

// Fields returns a copy of every column keyed by field path.
func (d *Dataset) Fields() map[string][]Value {
	out := make(map[string][]Value, len(d.paths))
	for i, p := range d.paths {
		col := make([]Value, len(d.columns[i]))
		copy(col, d.columns[i])
		out[p] = col
	}
	return out
}

func (d *Dataset) String() string {
	return fmt.Sprintf("%s/%d (%d samples)", d.name, d.multiID, d.Len())
}

// Result is the immutable outcome of one decode.
type Result struct {
	version        uint8
	startTimestamp uint64

	messages    []LoggedMessage
	tagged      map[uint16][]LoggedMessage
	tags        []uint16
	datasets    []*Dataset
	initial     map[string]Value
	initialKeys []string
	changes     []ParameterChange
	info        map[string]Value
	infoMulti   map[string][][]Value
}

// Version is the ULog file version from the header.
func (r *Result) Version() uint8 { return r.version }

// StartTimestamp is the header timestamp in microseconds.
func (r *Result) StartTimestamp() uint64 { return r.startTimestamp }

// LoggedMessages returns untagged messages in stream order.
func (r *Result) LoggedMessages() []LoggedMessage {
	out := make([]LoggedMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// LoggedMessagesTagged groups tagged messages by tag, each group in stream
// order.
func (r *Result) LoggedMessagesTagged() map[uint16][]LoggedMessage {
	out := make(map[uint16][]LoggedMessage, len(r.tagged))
	for tag, msgs := range r.tagged {
		cp := make([]LoggedMessage, len(msgs))
		copy(cp, msgs)
		out[tag] = cp
	}
	return out
}

// Tags lists message tags in order of first appearance.
func (r *Result) Tags() []uint16 {
	out := make([]uint16, len(r.tags))
	copy(out, r.tags)
	return out
}

// Datasets returns every dataset that received at least one sample, ordered
// by the first subscription of its (format, multi-instance) pair.
func (r *Result) Datasets() []*Dataset {
	out := make([]*Dataset, len(r.datasets))
	copy(out, r.datasets)
	return out
}

// Dataset finds the dataset for a format name and multi-instance index.
func (r *Result) Dataset(name string, multiID uint8) (*Dataset, bool) {
	for _, d := range r.datasets {
		if d.name == name && d.multiID == multiID {
			return d, true
		}
	}
	return nil, false
}

// InitialParameters returns parameters written before the first data sample.
func (r *Result) InitialParameters() map[string]Value {
	out := make(map[string]Value, len(r.initial))
	for k, v := range r.initial {
		out[k] = v
	}
	return out
}

// InitialParameterNames lists initial parameters in order of first write.
func (r *Result) InitialParameterNames() []string {
	out := make([]string, len(r.initialKeys))
	copy(out, r.initialKeys)
	return out
}

// ParameterChanges returns every parameter write after the first data sample
// in stream order.
func (r *Result) ParameterChanges() []ParameterChange {
	out := make([]ParameterChange, len(r.changes))
	copy(out, r.changes)
	return out
}

// Info returns key/value information records (system name, version, ...).
// A later record with the same key replaces an earlier one.
func (r *Result) Info() map[string]Value {
	out := make(map[string]Value, len(r.info))
	for k, v := range r.info {
		out[k] = v
	}
	return out
}

// InfoMultiple returns multi-part information records. Each key maps to a
// list of messages, each message being the list of its continued parts.
func (r *Result) InfoMultiple() map[string][][]Value {
	out := make(map[string][][]Value, len(r.infoMulti))
	for k, groups := range r.infoMulti {
		cp := make([][]Value, len(groups))
		for i, g := range groups {
			cp[i] = append([]Value(nil), g...)
		}
		out[k] = cp
	}
	return out
}

type datasetKey struct {
	name    string
	multiID uint8
}

type datasetBuilder struct {
	Dataset
	layout *layout
}

func (b *datasetBuilder) append(l *layout, row []Value) error {
	if b.layout != l {
		if b.layout != nil && !samePaths(b.paths, l.paths) {
			return fmt.Errorf("%w: format %s changed shape after %d samples", ErrSchemaMismatch, b.name, b.Len())
		}
		if b.layout == nil && b.paths == nil {
			b.paths = append([]string(nil), l.paths...)
			b.columns = make([][]Value, len(b.paths))
		}
		b.layout = l
	}
	for i, v := range row {
		b.columns[i] = append(b.columns[i], v)
	}
	b.rows++
	return nil
}

func samePaths(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resultBuilder accumulates decoded records; freeze hands the contents over to
// an immutable Result.
type resultBuilder struct {
	res      Result
	datasets map[datasetKey]*datasetBuilder
	order    []*datasetBuilder
}

func newResultBuilder(hdr Header) *resultBuilder {
	return &resultBuilder{
		res: Result{
			version:        hdr.Version,
			startTimestamp: hdr.Timestamp,
			tagged:         make(map[uint16][]LoggedMessage),
			initial:        make(map[string]Value),
			info:           make(map[string]Value),
			infoMulti:      make(map[string][][]Value),
		},
		datasets: make(map[datasetKey]*datasetBuilder),
	}
}

func (b *resultBuilder) dataset(name string, multiID uint8) *datasetBuilder {
	key := datasetKey{name: name, multiID: multiID}
	if ds, ok := b.datasets[key]; ok {
		return ds
	}
	ds := &datasetBuilder{Dataset: Dataset{name: name, multiID: multiID}}
	b.datasets[key] = ds
	b.order = append(b.order, ds)
	return ds
}

func (b *resultBuilder) addMessage(m LoggedMessage) {
	if !m.Tagged {
		b.res.messages = append(b.res.messages, m)
		return
	}
	if _, ok := b.res.tagged[m.Tag]; !ok {
		b.res.tags = append(b.res.tags, m.Tag)
	}
	b.res.tagged[m.Tag] = append(b.res.tagged[m.Tag], m)
}

func (b *resultBuilder) setInitialParameter(name string, v Value) {
	if _, ok := b.res.initial[name]; !ok {
		b.res.initialKeys = append(b.res.initialKeys, name)
	}
	b.res.initial[name] = v
}

func (b *resultBuilder) addParameterChange(c ParameterChange) {
	b.res.changes = append(b.res.changes, c)
}

func (b *resultBuilder) setInfo(key string, v Value) {
	b.res.info[key] = v
}

func (b *resultBuilder) addInfoMultiple(key string, continued bool, v Value) {
	groups := b.res.infoMulti[key]
	if continued && len(groups) > 0 {
		groups[len(groups)-1] = append(groups[len(groups)-1], v)
	} else {
		groups = append(groups, []Value{v})
	}
	b.res.infoMulti[key] = groups
}

func (b *resultBuilder) freeze() *Result {
	res := b.res
	for _, ds := range b.order {
		if ds.Len() == 0 {
			continue
		}
		d := ds.Dataset
		res.datasets = append(res.datasets, &d)
	}
	b.res = Result{}
	b.datasets = nil
	b.order = nil
	return &res
}
