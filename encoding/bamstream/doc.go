// Package bamstream reads and writes BAM (or SAM) records strictly in file
// order, without consulting an index.
//
// Source is the reading side. Unlike bamprovider-style readers it does not
// shard the input and never seeks, so it can serve read-name-sorted files,
// which cannot be indexed. Writer creates a BAM file that reuses a header
// obtained from a Source.
//
// FloatTag gives typed access to numeric aux fields, matched by tag prefix.
package bamstream
