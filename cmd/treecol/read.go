package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/cache"
	"github.com/treecol/treecol/column"
	"github.com/treecol/treecol/source"
)

func newReadCommand() *cobra.Command {
	var start, stop int64
	cmd := &cobra.Command{
		Use:   "read <file> <column>",
		Short: "dump a column entry range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()
			src, err := source.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			im, err := column.OpenImage(cmd.Context(), src)
			if err != nil {
				return err
			}
			col, err := im.Column(args[1])
			if err != nil {
				return err
			}
			if stop < 0 || stop > col.Entries {
				stop = col.Entries
			}
			opts := []column.Option{column.WithLogger(logger)}
			if flagWorkers > 0 {
				opts = append(opts, column.WithWorkers(flagWorkers))
			}
			if flagCache > 0 {
				arrays, err := cache.NewArray(flagCache, prometheus.DefaultRegisterer)
				if err != nil {
					return err
				}
				opts = append(opts, column.WithArrayCache(arrays))
				objects, err := cache.NewObject(flagCache, prometheus.DefaultRegisterer)
				if err != nil {
					return err
				}
				opts = append(opts, column.WithObjectCache(objects))
			}
			r := column.NewReader(src, im.Registry, im.Scheme, opts...)
			res, err := r.ReadColumn(cmd.Context(), col, start, stop, nil)
			if err != nil {
				return err
			}
			return dump(cmd.OutOrStdout(), res, start)
		},
	}
	cmd.Flags().Int64Var(&start, "start", 0, "first entry to read")
	cmd.Flags().Int64Var(&stop, "stop", -1, "entry to stop before (default end)")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "baskets decoded in parallel")
	cmd.Flags().IntVar(&flagCache, "cache", 0, "array cache size in results")
	return cmd
}

func dump(w io.Writer, res treecol.Result, first int64) error {
	switch res := res.(type) {
	case *treecol.Flat:
		vals := flatValues(res)
		for i, v := range vals {
			fmt.Fprintf(w, "%d: %v\n", first+int64(i), v)
		}
	case *treecol.StringArray:
		for i, s := range res.Values {
			fmt.Fprintf(w, "%d: %q\n", first+int64(i), s)
		}
	case *treecol.JaggedArray:
		flat, err := res.Flat()
		if err != nil {
			return err
		}
		vals := flatValues(flat)
		for i := 0; i < res.Entries(); i++ {
			fmt.Fprintf(w, "%d: %v\n", first+int64(i), vals[res.Offsets[i]:res.Offsets[i+1]])
		}
	case *treecol.Group:
		for i, name := range res.Names {
			fmt.Fprintf(w, "member %s:\n", name)
			if err := dump(w, res.Elems[i], first); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cannot dump %T", res)
	}
	return nil
}

func flatValues(f *treecol.Flat) []any {
	boxed := func(n int, get func(int) any) []any {
		out := make([]any, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}
	switch f.Of {
	case treecol.Bool:
		v := f.Bools()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.I8:
		v := f.Int8s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.U8:
		v := f.Uint8s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.I16:
		v := f.Int16s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.U16:
		v := f.Uint16s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.I32:
		v := f.Int32s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.U32:
		v := f.Uint32s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.I64:
		v := f.Int64s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.U64:
		v := f.Uint64s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.F32:
		v := f.Float32s()
		return boxed(len(v), func(i int) any { return v[i] })
	case treecol.F64:
		v := f.Float64s()
		return boxed(len(v), func(i int) any { return v[i] })
	}
	return boxed(len(f.Raw), func(i int) any { return f.Raw[i] })
}
