// Package iso9660 reads ISO 9660 images without mounting them.
//
// The reader understands the Primary Volume Descriptor, the Joliet
// Supplementary Volume Descriptor, and the Rock Ridge NM extension carried in
// the System Use area of directory records. Names are taken from the Joliet
// tree when present, then from Rock Ridge, then from the plain 8.3
// identifiers; Options.PreferRockRidge swaps the first two.
//
// Images cut with 2336 or 2352 byte sectors are read through a view that
// exposes only the 2048 byte user data of each sector, so every offset the
// format stores (logical block * 2048) stays valid.
package iso9660
