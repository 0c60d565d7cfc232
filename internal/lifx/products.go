package lifx

import "strings"

// LIFX vendor identifier. All genuine devices report vendor 1.
const vendorLIFX uint32 = 1

// switchProducts are product IDs for LIFX Switch relays. They answer
// discovery like bulbs but have no light engine, so the bridge must
// never address them.
var switchProducts = map[uint32]bool{
	68:  true,
	70:  true,
	71:  true,
	72:  true,
	73:  true,
	108: true,
	109: true,
	110: true,
	111: true,
}

// productNames maps known product IDs to marketing names. Unknown IDs
// fall back to a generic label; the bridge only needs names for
// operator-facing listings and switch detection.
var productNames = map[uint32]string{
	1:   "LIFX Original 1000",
	22:  "LIFX Color 1000",
	27:  "LIFX A19",
	29:  "LIFX A19 Night Vision",
	31:  "LIFX Z",
	32:  "LIFX Z",
	36:  "LIFX Downlight",
	38:  "LIFX Beam",
	43:  "LIFX A19",
	49:  "LIFX Mini Color",
	50:  "LIFX Mini White to Warm",
	51:  "LIFX Mini White",
	52:  "LIFX GU10",
	55:  "LIFX Tile",
	57:  "LIFX Candle",
	59:  "LIFX Mini Color",
	66:  "LIFX Mini White",
	68:  "LIFX Switch",
	70:  "LIFX Switch",
	71:  "LIFX Switch",
	72:  "LIFX Switch",
	73:  "LIFX Switch",
	81:  "LIFX Candle White to Warm",
	82:  "LIFX Filament Clear",
	85:  "LIFX Filament Amber",
	88:  "LIFX Mini White",
	90:  "LIFX Clean",
	91:  "LIFX Color",
	92:  "LIFX Color",
	93:  "LIFX A19 US",
	94:  "LIFX BR30",
	96:  "LIFX Candle White to Warm",
	97:  "LIFX A19",
	98:  "LIFX BR30",
	99:  "LIFX Clean",
	100: "LIFX Filament Clear",
	101: "LIFX Filament Amber",
	108: "LIFX Switch",
	109: "LIFX Switch",
	110: "LIFX Switch",
	111: "LIFX Switch",
	112: "LIFX Z",
	113: "LIFX Mini Color",
	114: "LIFX Mini White to Warm",
}

// productName returns the marketing name for a product ID, or a generic
// label when unknown.
func productName(product uint32) string {
	if name, ok := productNames[product]; ok {
		return name
	}
	return "LIFX Device"
}

// isSwitchProduct reports whether the product is a relay rather than a
// light. Checks the known ID set first, then falls back to the model
// name for IDs newer than the table.
func isSwitchProduct(product uint32, model string) bool {
	if switchProducts[product] {
		return true
	}
	return strings.Contains(model, "Switch")
}
