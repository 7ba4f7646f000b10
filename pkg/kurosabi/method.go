package kurosabi

// Method identifies an HTTP request method. The nine standard verbs
// each get a distinct value; MethodERR marks a request that failed to
// parse (see the degenerate Request produced by ParseRequestLine).
type Method uint8

const (
	MethodERR Method = iota
	MethodGET
	MethodPOST
	MethodPUT
	MethodDELETE
	MethodHEAD
	MethodOPTIONS
	MethodPATCH
	MethodTRACE
	MethodCONNECT
)

var methodStrings = [...]string{
	MethodERR:     "",
	MethodGET:     "GET",
	MethodPOST:    "POST",
	MethodPUT:     "PUT",
	MethodDELETE:  "DELETE",
	MethodHEAD:    "HEAD",
	MethodOPTIONS: "OPTIONS",
	MethodPATCH:   "PATCH",
	MethodTRACE:   "TRACE",
	MethodCONNECT: "CONNECT",
}

// String returns the wire representation of m, or "" for MethodERR.
func (m Method) String() string {
	if int(m) < len(methodStrings) {
		return methodStrings[m]
	}
	return ""
}

// ParseMethod matches a raw method token against the nine standard
// verbs using a length-dispatched byte comparison, avoiding a map
// lookup or string allocation in the hot parse path. Unrecognized
// input returns MethodERR.
func ParseMethod(b []byte) Method {
	switch len(b) {
	case 3:
		if b[0] == 'G' && b[1] == 'E' && b[2] == 'T' {
			return MethodGET
		}
		if b[0] == 'P' && b[1] == 'U' && b[2] == 'T' {
			return MethodPUT
		}
	case 4:
		if b[0] == 'P' && b[1] == 'O' && b[2] == 'S' && b[3] == 'T' {
			return MethodPOST
		}
		if b[0] == 'H' && b[1] == 'E' && b[2] == 'A' && b[3] == 'D' {
			return MethodHEAD
		}
	case 5:
		if b[0] == 'P' && b[1] == 'A' && b[2] == 'T' && b[3] == 'C' && b[4] == 'H' {
			return MethodPATCH
		}
		if b[0] == 'T' && b[1] == 'R' && b[2] == 'A' && b[3] == 'C' && b[4] == 'E' {
			return MethodTRACE
		}
	case 6:
		if b[0] == 'D' && b[1] == 'E' && b[2] == 'L' && b[3] == 'E' && b[4] == 'T' && b[5] == 'E' {
			return MethodDELETE
		}
	case 7:
		if b[0] == 'O' && b[1] == 'P' && b[2] == 'T' && b[3] == 'I' && b[4] == 'O' && b[5] == 'N' && b[6] == 'S' {
			return MethodOPTIONS
		}
		if b[0] == 'C' && b[1] == 'O' && b[2] == 'N' && b[3] == 'N' && b[4] == 'E' && b[5] == 'C' && b[6] == 'T' {
			return MethodCONNECT
		}
	}
	return MethodERR
}

// Version identifies the HTTP protocol version token on the request
// line. All three wire tokens parse successfully; the routing loop does
// not check the version and dispatches every parsed request to the
// Router, and responses are always written as HTTP/1.1.
type Version uint8

const (
	VersionERR Version = iota
	VersionHTTP10
	VersionHTTP11
	VersionHTTP20
)

// ParseVersion matches a raw version token against the three
// recognized wire forms.
func ParseVersion(b []byte) Version {
	switch string(b) {
	case "HTTP/1.0":
		return VersionHTTP10
	case "HTTP/1.1":
		return VersionHTTP11
	case "HTTP/2.0":
		return VersionHTTP20
	default:
		return VersionERR
	}
}

// String returns the wire representation of v.
func (v Version) String() string {
	switch v {
	case VersionHTTP10:
		return "HTTP/1.0"
	case VersionHTTP11:
		return "HTTP/1.1"
	case VersionHTTP20:
		return "HTTP/2.0"
	default:
		return ""
	}
}
