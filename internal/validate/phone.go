package validate

// validDDDs is the fixed whitelist of Brazilian area codes.
var validDDDs = map[string]bool{
	"11": true, "12": true, "13": true, "14": true, "15": true,
	"16": true, "17": true, "18": true, "19": true,
	"21": true, "22": true, "24": true, "27": true, "28": true,
	"31": true, "32": true, "33": true, "34": true, "35": true,
	"37": true, "38": true,
	"41": true, "42": true, "43": true, "44": true, "45": true, "46": true,
	"47": true, "48": true, "49": true,
	"51": true, "53": true, "54": true, "55": true,
	"61": true, "62": true, "63": true, "64": true, "65": true, "66": true,
	"67": true, "68": true, "69": true,
	"71": true, "73": true, "74": true, "75": true, "77": true, "79": true,
	"81": true, "82": true, "83": true, "84": true, "85": true, "86": true,
	"87": true, "88": true, "89": true,
	"91": true, "92": true, "93": true, "94": true, "95": true, "96": true,
	"97": true, "98": true, "99": true,
}

// Phone validates a Brazilian phone number: 10 digits for land lines,
// 11 for mobiles. The area code must be in the DDD whitelist; mobiles
// must have 9 as the third digit, land lines a third digit in 2..5.
func Phone(s string) bool {
	d := Digits(s)
	if len(d) != 10 && len(d) != 11 {
		return false
	}
	if !validDDDs[d[:2]] {
		return false
	}
	third := d[2]
	if len(d) == 11 {
		return third == '9'
	}
	return third >= '2' && third <= '5'
}

// FormatPhone renders a 10 or 11 digit phone in the conventional
// "(DD) NNNNN-NNNN" mask. Anything else is returned unchanged.
func FormatPhone(s string) string {
	d := Digits(s)
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return s
	}
}
