package classfile

// CurrentMajorVersion is the newest major version this package has explicit
// platform-name knowledge of; newer files still decode, but Decode attaches
// a WarnUnsupportedVersion Warning.
const CurrentMajorVersion = 68 // Java 24

// platformNames maps a class-file major version to the JDK release that
// introduced it, mirroring the table javatools keeps for display purposes.
var platformNames = map[uint16]string{
	45: "Java 1.1",
	46: "Java 1.2",
	47: "Java 1.3",
	48: "Java 1.4",
	49: "Java 5",
	50: "Java 6",
	51: "Java 7",
	52: "Java 8",
	53: "Java 9",
	54: "Java 10",
	55: "Java 11",
	56: "Java 12",
	57: "Java 13",
	58: "Java 14",
	59: "Java 15",
	60: "Java 16",
	61: "Java 17",
	62: "Java 18",
	63: "Java 19",
	64: "Java 20",
	65: "Java 21",
	66: "Java 22",
	67: "Java 23",
	68: "Java 24",
}

// PlatformName returns the human-readable JDK release name for a class-file
// major version, or "unknown" if it falls outside the known table.
func PlatformName(major uint16) string {
	if name, ok := platformNames[major]; ok {
		return name
	}
	return "unknown"
}
