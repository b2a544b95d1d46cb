// Package message decodes the header messages of HDF5 objects.
//
// [Parse] turns one message body into a typed value: [Dataspace],
// [Datatype], [DataLayout], [FilterPipeline], [FillValue], [Attribute],
// [Link], [SymbolTable] or [Continuation]. Other types, and messages
// shared through another object, come back as [Unknown] so a header can
// still be read past them.
//
// Offsets and lengths inside a body use the widths recorded in the
// superblock, taken from the reader passed to Parse.
package message
