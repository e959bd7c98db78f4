// Package assetstore persists fetched coin assets.
//
// A Store wraps a gocloud.dev/blob bucket and addresses assets by
// slash-separated keys relative to the asset root:
//
//	coins.json
//	coins_config.json
//	coin-icons/kmd.png
//	coin-icons/btc.png
//
// # Locations
//
// [Open] accepts either a plain filesystem path or a bucket URL. A plain
// path (or a file:// URL) is opened with fileblob and keeps directory
// semantics: [Store.DirExists] reports whether the directory is present on
// disk, even when empty, and [Store.MakeDir] creates it. Other schemes
// (mem://, s3://, gs://) have no directories; a directory exists there once
// at least one object carries its prefix, and MakeDir is a no-op.
//
// Local buckets never write .attrs sidecar files, so the asset tree holds
// exactly the files that were fetched.
package assetstore
