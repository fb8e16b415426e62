package column

import (
	"context"
	"fmt"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/keydir"
	"github.com/treecol/treecol/rbuf"
	"github.com/treecol/treecol/source"
	"github.com/treecol/treecol/streamer"
)

// An image is a self-describing fixture file: the concatenated basket
// streams, the file's serialized streamer records, a column index, and a
// fixed-size trailer locating the two.  The trailer sits at the very end
// so an image opens with one ranged read plus two more for the blobs.
const (
	imageMagic   = 0x54434f4c // "TCOL"
	imageVersion = 1
	trailerSize  = 4 + 2 + 1 + 8 + 4 + 8 + 4
)

// BuildImage assembles an image from the basket bytes a Writer produced,
// an optional marshaled streamer record set, and the column index.
func BuildImage(baskets, streamers []byte, scheme treecol.OffsetScheme, cols ...*Column) []byte {
	var b rbuf.Builder
	b.AppendBytes(baskets)
	regOff := int64(b.Len())
	b.AppendBytes(streamers)
	idxOff := int64(b.Len())
	marshalIndex(&b, cols)
	idxLen := int64(b.Len()) - idxOff

	b.AppendU32(imageMagic)
	b.AppendU16(imageVersion)
	b.AppendU8(uint8(scheme))
	b.AppendI64(regOff)
	b.AppendI32(int32(len(streamers)))
	b.AppendI64(idxOff)
	b.AppendI32(int32(idxLen))
	return b.Bytes()
}

func marshalIndex(b *rbuf.Builder, cols []*Column) {
	b.AppendU32(uint32(len(cols)))
	for _, col := range cols {
		b.AppendString(col.Name)
		b.AppendString(col.TypeName)
		b.AppendI64(col.Entries)
		b.AppendU32(uint32(len(col.Baskets)))
		for _, ref := range col.Baskets {
			b.AppendI64(ref.Seek)
			b.AppendI32(int32(ref.NBytes))
			b.AppendI64(ref.EntryStart)
			b.AppendI64(ref.Entries)
			b.AppendU32(uint32(len(ref.Offsets)))
			for _, off := range ref.Offsets {
				b.AppendI64(off)
			}
		}
	}
}

// Image is an opened fixture file: its schema registry, its columns, and
// a directory of where everything lives.
type Image struct {
	Registry *streamer.Registry
	Dir      *keydir.Mem
	Scheme   treecol.OffsetScheme

	columns map[string]*Column
	order   []string
}

// OpenImage reads an image's trailer and blobs from a source.
func OpenImage(ctx context.Context, src source.Source) (*Image, error) {
	if src.Size() < trailerSize {
		return nil, fmt.Errorf("source of %d bytes is smaller than the trailer", src.Size())
	}
	raw, err := src.ReadRange(ctx, src.Size()-trailerSize, trailerSize)
	if err != nil {
		return nil, err
	}
	c := rbuf.New(raw)
	magic, _ := c.ReadU32()
	if magic != imageMagic {
		return nil, fmt.Errorf("bad magic 0x%x", magic)
	}
	version, _ := c.ReadU16()
	if version != imageVersion {
		return nil, fmt.Errorf("unsupported image version %d", version)
	}
	scheme, _ := c.ReadU8()
	regOff, _ := c.ReadI64()
	regLen, _ := c.ReadI32()
	idxOff, _ := c.ReadI64()
	idxLen, err := c.ReadI32()
	if err != nil {
		return nil, err
	}

	im := &Image{
		Registry: streamer.NewRegistry(),
		Dir:      keydir.NewMem(),
		Scheme:   treecol.OffsetScheme(scheme),
		columns:  make(map[string]*Column),
	}
	if regLen > 0 {
		im.Dir.Put(keydir.Key{
			Name: "StreamerInfo", Cycle: 1, ClassName: "TList",
			Offset: regOff, Length: int(regLen),
		})
		key, err := im.Dir.Lookup("StreamerInfo", -1)
		if err != nil {
			return nil, err
		}
		blob, err := src.ReadRange(ctx, key.Offset, key.Length)
		if err != nil {
			return nil, err
		}
		if err := im.Registry.Register(blob); err != nil {
			return nil, fmt.Errorf("streamer records: %w", err)
		}
	}
	blob, err := src.ReadRange(ctx, idxOff, int(idxLen))
	if err != nil {
		return nil, err
	}
	if err := im.readIndex(blob); err != nil {
		return nil, fmt.Errorf("column index: %w", err)
	}
	return im, nil
}

func (im *Image) readIndex(blob []byte) error {
	c := rbuf.New(blob)
	ncols, err := c.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < ncols; i++ {
		col := &Column{}
		if col.Name, err = c.String(); err != nil {
			return err
		}
		if col.TypeName, err = c.String(); err != nil {
			return err
		}
		if col.Entries, err = c.ReadI64(); err != nil {
			return err
		}
		nbaskets, err := c.ReadU32()
		if err != nil {
			return err
		}
		for j := uint32(0); j < nbaskets; j++ {
			var ref BasketRef
			var nbytes int32
			if ref.Seek, err = c.ReadI64(); err != nil {
				return err
			}
			if nbytes, err = c.ReadI32(); err != nil {
				return err
			}
			ref.NBytes = int(nbytes)
			if ref.EntryStart, err = c.ReadI64(); err != nil {
				return err
			}
			if ref.Entries, err = c.ReadI64(); err != nil {
				return err
			}
			noffsets, err := c.ReadU32()
			if err != nil {
				return err
			}
			if noffsets > 0 {
				if ref.Offsets, err = c.ReadI64Array(int(noffsets)); err != nil {
					return err
				}
			}
			col.Baskets = append(col.Baskets, ref)
		}
		im.columns[col.Name] = col
		im.order = append(im.order, col.Name)
		length := 0
		seek := int64(0)
		if len(col.Baskets) > 0 {
			seek = col.Baskets[0].Seek
			last := col.Baskets[len(col.Baskets)-1]
			length = int(last.Seek + int64(last.NBytes) - seek)
		}
		im.Dir.Put(keydir.Key{
			Name: col.Name, Cycle: 1, ClassName: col.TypeName,
			Offset: seek, Length: length,
		})
	}
	return nil
}

// Column returns a column's metadata by name, resolved through the
// image's directory.
func (im *Image) Column(name string) (*Column, error) {
	if _, err := im.Dir.Lookup(name, -1); err != nil {
		return nil, err
	}
	col, ok := im.columns[name]
	if !ok {
		return nil, fmt.Errorf("directory names column %q but the index lacks it", name)
	}
	return col, nil
}

// Columns returns the column names in index order.
func (im *Image) Columns() []string {
	return im.order
}
