// Package mapping defines channel mappings: the binding between a block
// of DMX channels in an sACN universe and a LIFX light.
//
// A mapping says "channels 10-12 of universe 1 drive light d073d5...,
// decoded as 8-bit RGB, capped at 80% brightness". Mappings are
// persisted in SQLite and cached in memory by Store so the frame
// dispatcher never blocks on the database.
//
// # Channel Modes
//
//	rgb8    3ch  red, green, blue
//	rgb16   6ch  red, green, blue (16-bit pairs, MSB first)
//	rgbw8   4ch  red, green, blue, white
//	rgbw16  8ch  red, green, blue, white (16-bit pairs)
//	hsbk8   4ch  hue, saturation, brightness, kelvin
//	hsbk16  8ch  hue, saturation, brightness, kelvin (16-bit pairs)
//
// # Usage
//
//	store := mapping.NewStore(mapping.NewSQLiteRepository(db.DB))
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//	for _, m := range store.ByUniverse(1) {
//	    ...
//	}
package mapping
