// 📁 internal/discovery/serial/vendors.go - USB-serial bridge database
package serial

import "strings"

// VendorDatabase identifies USB-serial bridge chips by VID/PID
type VendorDatabase struct {
	vendors map[string]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[string]string
}

// NewVendorDatabase creates and initializes the vendor database
func NewVendorDatabase() *VendorDatabase {
	db := &VendorDatabase{
		vendors: make(map[string]*VendorInfo),
	}
	db.initializeDatabase()
	return db
}

// initializeDatabase populates the common USB-serial bridge vendors
func (db *VendorDatabase) initializeDatabase() {
	db.vendors["10C4"] = &VendorInfo{
		Name: "Silicon Labs",
		products: map[string]string{
			"EA60": "CP210x UART Bridge",
			"EA70": "CP2105 Dual UART Bridge",
			"EA71": "CP2108 Quad UART Bridge",
			"8A2A": "Zigbee USB Stick",
		},
	}

	db.vendors["0403"] = &VendorInfo{
		Name: "FTDI",
		products: map[string]string{
			"6001": "FT232R USB UART",
			"6010": "FT2232 Dual UART",
			"6014": "FT232H Single HS USB-UART",
			"6015": "FT231X USB UART",
		},
	}

	db.vendors["067B"] = &VendorInfo{
		Name: "Prolific",
		products: map[string]string{
			"2303": "PL2303 Serial Port",
			"23A3": "PL2303GC Serial Port",
		},
	}

	db.vendors["1A86"] = &VendorInfo{
		Name: "WCH",
		products: map[string]string{
			"7523": "CH340 Serial Converter",
			"55D4": "CH9102 Serial Converter",
		},
	}

	db.vendors["0451"] = &VendorInfo{
		Name: "Texas Instruments",
		products: map[string]string{
			"16A8": "CC2531 Zigbee Dongle",
		},
	}

	db.vendors["0483"] = &VendorInfo{
		Name:     "STMicroelectronics",
		products: map[string]string{"5740": "Virtual COM Port"},
	}

	db.vendors["303A"] = &VendorInfo{
		Name:     "Espressif",
		products: map[string]string{"1001": "USB JTAG/serial debug unit"},
	}

	db.vendors["2341"] = &VendorInfo{
		Name:     "Arduino",
		products: map[string]string{},
	}
}

// Lookup returns the vendor name and product description for a VID/PID
// pair. Either may be empty when unknown.
func (db *VendorDatabase) Lookup(vid, pid string) (vendor, product string) {
	info, ok := db.vendors[strings.ToUpper(vid)]
	if !ok {
		return "", ""
	}
	return info.Name, info.products[strings.ToUpper(pid)]
}
