package rbuf

// Helpers for the object framing that wraps serialized class instances.
// These are used by the streamer bootstrap to walk record headers without
// materializing the base objects themselves.

const (
	byteCountVMask = 0x4000
	isReferenced   = 1 << 4
)

// SkipTObject skips a serialized base-object header: a 2-byte version
// (optionally followed by a 4-byte count when the version's count bit is
// set), the unique-id and bits words, and the 2-byte process id present
// when the referenced bit is set.
func (c *Cursor) SkipTObject() error {
	version, err := c.ReadU16()
	if err != nil {
		return err
	}
	if version&byteCountVMask != 0 {
		if err := c.Skip(4); err != nil {
			return err
		}
	}
	if err := c.Skip(4); err != nil { // fUniqueID
		return err
	}
	bits, err := c.ReadU32()
	if err != nil {
		return err
	}
	if bits&isReferenced != 0 {
		return c.Skip(2)
	}
	return nil
}

// NameTitle reads a named-object header (byte count, version, base object,
// then name and title strings) and verifies the declared byte count.
func (c *Cursor) NameTitle() (name, title string, err error) {
	start := c.Pos()
	count, _, err := c.ByteCountVersion()
	if err != nil {
		return "", "", err
	}
	if err := c.SkipTObject(); err != nil {
		return "", "", err
	}
	if name, err = c.String(); err != nil {
		return "", "", err
	}
	if title, err = c.String(); err != nil {
		return "", "", err
	}
	return name, title, c.CheckByteCount(start, count, "TNamed")
}
