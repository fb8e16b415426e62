package rplan

import (
	"fmt"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
)

// EntryDecoder decodes successive entries of a single interpretation into
// columnar accumulators.  Self-delimiting interpretations (scalars, fixed
// arrays, containers, strings) consume from a shared cursor; jagged and
// raw interpretations take pre-sliced entry bytes, since only the basket's
// offset table knows where those entries end.
type EntryDecoder struct {
	in   treecol.Interp
	root node
}

func NewEntryDecoder(in treecol.Interp) (*EntryDecoder, error) {
	if _, ok := in.(*treecol.Named); ok {
		return nil, fmt.Errorf("unresolved class reference %s: %w",
			in, treecol.ErrUnsupportedType)
	}
	return &EntryDecoder{in: in, root: makeNode(in)}, nil
}

func (d *EntryDecoder) DecodeEntry(c *rbuf.Cursor) error {
	return decodeValue(d.in, d.root, c, true)
}

// DecodeEntryBytes consumes exactly one entry's bytes.
func (d *EntryDecoder) DecodeEntryBytes(b []byte) error {
	switch in := d.in.(type) {
	case *treecol.Jagged:
		if len(b) < in.Header {
			return fmt.Errorf("entry of %d bytes shorter than %d-byte header: %w",
				len(b), in.Header, rbuf.ErrTruncated)
		}
		content := b[in.Header:]
		j := d.root.(*jaggedNode)
		flat, ok := j.child.(*flatNode)
		if !ok {
			return fmt.Errorf("jagged inner %s is not flat: %w",
				in.Inner, treecol.ErrUnsupportedLayout)
		}
		size := flat.of.Size()
		if len(content)%size != 0 {
			return fmt.Errorf("jagged entry of %d bytes not a multiple of %d-byte %s",
				len(content), size, flat.of)
		}
		flat.append(content)
		j.close(len(content) / size)
		return nil
	case *treecol.RawBytes:
		d.root.(*flatNode).append(b)
		return nil
	}
	c := rbuf.New(b)
	if err := d.DecodeEntry(c); err != nil {
		return err
	}
	if c.Len() != 0 {
		return fmt.Errorf("%d bytes left over after entry of %s", c.Len(), d.in)
	}
	return nil
}

// Result assembles everything decoded so far.
func (d *EntryDecoder) Result() treecol.Result {
	return d.root.result()
}
