package hexconv

var decodeTable = [256]byte{
	'0': 0x0,
	'1': 0x1,
	'2': 0x2,
	'3': 0x3,
	'4': 0x4,
	'5': 0x5,
	'6': 0x6,
	'7': 0x7,
	'8': 0x8,
	'9': 0x9,
	'a': 0xa,
	'b': 0xb,
	'c': 0xc,
	'd': 0xd,
	'e': 0xe,
	'f': 0xf,
	'A': 0xA,
	'B': 0xB,
	'C': 0xC,
	'D': 0xD,
	'E': 0xE,
	'F': 0xF,
}

// Halfbyte maps an ASCII hex digit (either case) to its 4-bit value. Every other
// byte maps to 0xFF.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = 0xFF
	}

	for _, c := range "0123456789abcdefABCDEF" {
		table[c] = decodeTable[c]
	}

	return table
}()

// Parse returns the 4-bit value of a hex digit. It returns 0 both for '0' and for
// any byte that isn't a hex digit; use Halfbyte to tell the two apart.
func Parse(char byte) byte {
	return decodeTable[char]
}
