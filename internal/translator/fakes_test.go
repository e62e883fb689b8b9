package translator

import (
	"context"
	"errors"
	"sync"
)

// fakeCodec interns strings so ids can carry text through a fake model.
type fakeCodec struct {
	mu    sync.Mutex
	texts []string
}

func (c *fakeCodec) id(s string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, s)
	return int64(len(c.texts) - 1)
}

func (c *fakeCodec) text(id int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts[id]
}

type fakeTokenizer struct {
	codec   *fakeCodec
	encoded [][]string
	closed  bool
}

func (t *fakeTokenizer) Encode(texts []string, _ int) (Encoded, error) {
	t.encoded = append(t.encoded, texts)
	enc := Encoded{}
	for _, s := range texts {
		enc.InputIDs = append(enc.InputIDs, []int64{t.codec.id(s)})
		enc.AttentionMask = append(enc.AttentionMask, []int64{1})
	}
	return enc, nil
}

func (t *fakeTokenizer) Decode(ids []int64) (string, error) {
	return t.codec.text(ids[0]), nil
}

func (t *fakeTokenizer) Close() error {
	t.closed = true
	return nil
}

// fakeModel renders each input as tag(input).
type fakeModel struct {
	codec  *fakeCodec
	tag    string
	err    error
	closed bool
}

func (m *fakeModel) Generate(_ context.Context, in Encoded, _ int) ([][]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]int64, len(in.InputIDs))
	for i, row := range in.InputIDs {
		out[i] = []int64{m.codec.id(m.tag + "(" + m.codec.text(row[0]) + ")")}
	}
	return out, nil
}

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

type fakeLoader struct {
	tags     map[string]string
	genErr   error
	loadErrs map[string]error

	loads  []string
	models []*fakeModel
}

func newFakeLoader(tags map[string]string) *fakeLoader {
	return &fakeLoader{tags: tags, loadErrs: map[string]error{}}
}

func (l *fakeLoader) Load(_ context.Context, name string) (Model, Tokenizer, error) {
	l.loads = append(l.loads, name)
	if err, ok := l.loadErrs[name]; ok {
		return nil, nil, err
	}
	tag, ok := l.tags[name]
	if !ok {
		return nil, nil, errors.Join(ErrModelNotFound, errors.New(name))
	}
	codec := &fakeCodec{}
	m := &fakeModel{codec: codec, tag: tag, err: l.genErr}
	l.models = append(l.models, m)
	return m, &fakeTokenizer{codec: codec}, nil
}

func texts(ts []Translation) []string {
	ret := make([]string, len(ts))
	for i, t := range ts {
		ret[i] = t.Text
	}
	return ret
}
