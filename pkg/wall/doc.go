// Package wall defines the memory wall data model shared by the stores, the
// upload flow and the layout engine.
//
// A [Wall] collects [Tile] values contributed by its [Member] users. Tiles are
// images, videos or text snippets. Image and video tiles carry the pixel
// dimensions of the stored asset after upload-time scaling ([ScaleToWidth]);
// text tiles have none.
//
// The layout engine only reads [Tile.Kind], [Tile.Width] and [Tile.Height].
// Everything else is owned by the store and travels through the engine
// untouched.
//
// Field tags follow the column names of the hosted database (json and db) so
// the same struct decodes PostgREST rows, scans Postgres rows through sqlx,
// and round-trips through MongoDB (bson).
package wall
