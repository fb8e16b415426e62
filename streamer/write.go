package streamer

import (
	"encoding/binary"

	"github.com/treecol/treecol/rbuf"
)

// Marshal serializes infos as a streamer-record set readable by Register:
// a TList of TStreamerInfo objects.  The writer always emits full
// new-class tags rather than class back-references.
func Marshal(infos []*Info) []byte {
	var b rbuf.Builder
	mark := b.BeginByteCount(5) // TList
	b.AppendTObject()
	b.AppendString("") // list name
	b.AppendI32(int32(len(infos)))
	for _, info := range infos {
		marshalObject(&b, "TStreamerInfo", func(b *rbuf.Builder) {
			marshalInfo(b, info)
		})
		b.AppendU8(0) // option string
	}
	b.EndByteCount(mark)
	return b.Bytes()
}

// marshalObject writes the polymorphic-object preamble (byte count,
// new-class tag, class name) around body.
func marshalObject(b *rbuf.Builder, class string, body func(*rbuf.Builder)) {
	mark := b.Len()
	b.AppendU32(0) // byte count, patched below
	b.AppendU32(newClassTag)
	b.AppendBytes(append([]byte(class), 0))
	body(b)
	count := uint32(b.Len()-mark-4) | rbuf.ByteCountMask
	binary.BigEndian.PutUint32(b.Bytes()[mark:], count)
}

func marshalInfo(b *rbuf.Builder, info *Info) {
	mark := b.BeginByteCount(9)
	b.AppendNameTitle(info.Name, info.Title)
	b.AppendU32(info.CheckSum)
	b.AppendI32(info.Version)
	marshalObject(b, "TObjArray", func(b *rbuf.Builder) {
		marshalElementArray(b, info.Elements)
	})
	b.EndByteCount(mark)
}

func marshalElementArray(b *rbuf.Builder, elements []*Element) {
	mark := b.BeginByteCount(3)
	b.AppendTObject()
	b.AppendString("") // array name
	b.AppendI32(int32(len(elements)))
	b.AppendI32(0) // lower bound
	for _, e := range elements {
		marshalObject(b, elementClass(e), func(b *rbuf.Builder) {
			marshalElement(b, e)
		})
	}
	b.EndByteCount(mark)
}

// elementClass picks the streamer-element subclass an element serializes
// as, the inverse of the parser's dispatch.
func elementClass(e *Element) string {
	switch {
	case e.Kind == KindBase:
		return "TStreamerBase"
	case e.Kind == KindTString:
		return "TStreamerString"
	case e.Kind == KindSTL || e.Kind == KindSTLstring || e.Kind == KindSTLp:
		return "TStreamerSTL"
	case e.Kind == KindObject || e.Kind == KindTObject || e.Kind == KindTNamed:
		return "TStreamerObject"
	case e.Kind == KindObjectp || e.Kind == KindObjectP:
		return "TStreamerObjectPointer"
	case e.Kind == KindAny:
		return "TStreamerObjectAny"
	case e.Kind > PointerMark && e.Kind < KindObject:
		return "TStreamerBasicPointer"
	default:
		return "TStreamerBasicType"
	}
}

func marshalElement(b *rbuf.Builder, e *Element) {
	class := elementClass(e)
	mark := b.BeginByteCount(4)
	marshalElementBase(b, e)
	switch class {
	case "TStreamerBase":
		b.AppendI32(e.BaseVersion)
	case "TStreamerBasicPointer":
		b.AppendI32(0) // counter version
		b.AppendString(e.CountName)
		b.AppendString("")
	case "TStreamerSTL":
		b.AppendI32(e.STLType)
		b.AppendI32(e.CType)
	}
	b.EndByteCount(mark)
}

func marshalElementBase(b *rbuf.Builder, e *Element) {
	mark := b.BeginByteCount(4)
	b.AppendNameTitle(e.Name, e.Title)
	b.AppendI32(int32(e.Kind))
	b.AppendI32(e.Size)
	b.AppendI32(e.ArrayLen)
	b.AppendI32(0) // array dimension count
	for i := 0; i < 5; i++ {
		b.AppendI32(0)
	}
	b.AppendString(e.TypeName)
	b.EndByteCount(mark)
}
