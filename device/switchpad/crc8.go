package switchpad

const crc8Poly = 0x07

// CRC8 computes the packet checksum: CRC-8 with polynomial 0x07, initial
// value 0, no reflection and no final XOR (CRC-8/SMBUS).
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crc8Update(crc, b)
	}
	return crc
}

func crc8Update(crc, b byte) byte {
	crc ^= b
	for range 8 {
		if crc&0x80 != 0 {
			crc = crc<<1 ^ crc8Poly
		} else {
			crc <<= 1
		}
	}
	return crc
}
