// Package criteria implements the criteria and location gates that decide
// whether a freshly scraped listing is worth carrying into dedup (spec §4.2).
package criteria

import "regexp"

// BoroughOutcodes maps each London borough's slug to its set of valid
// postcode outcodes, carried in full from the original scraper's static
// table so location-gate behavior matches production exactly.
var BoroughOutcodes = map[string]map[string]struct{}{
	"city-of-london": set("EC1", "EC2", "EC3", "EC4"),
	"westminster": set(
		"SW1", "SW1A", "SW1E", "SW1H", "SW1P", "SW1V", "SW1W", "SW1X", "SW1Y",
		"W1", "W1B", "W1C", "W1D", "W1F", "W1G", "W1H", "W1J", "W1K", "W1S",
		"W1T", "W1U", "W1W", "W2", "WC1", "WC2", "NW1", "NW8",
	),
	"camden":    set("NW1", "NW3", "NW5", "NW6", "WC1", "WC2", "N1", "N6", "N7", "N19"),
	"islington": set("N1", "N4", "N5", "N7", "N19", "EC1", "EC1A", "EC1M", "EC1N", "EC1R", "EC1V", "EC1Y"),

	"hackney":          set("E5", "E8", "E9", "E10", "N1", "N4", "N5", "N15", "N16"),
	"tower-hamlets":    set("E1", "E1W", "E2", "E3", "E14"),
	"newham":           set("E6", "E7", "E12", "E13", "E15", "E16"),
	"waltham-forest":   set("E4", "E10", "E11", "E17"),
	"barking-dagenham": set("IG11", "RM6", "RM8", "RM9", "RM10"),
	"havering":         set("RM1", "RM2", "RM3", "RM4", "RM5", "RM7", "RM11", "RM12", "RM13", "RM14"),
	"redbridge":        set("E18", "IG1", "IG2", "IG3", "IG4", "IG5", "IG6", "IG7", "IG8"),

	"haringey": set("N4", "N6", "N8", "N10", "N11", "N15", "N17", "N22"),
	"enfield":  set("EN1", "EN2", "EN3", "EN4", "EN5", "N9", "N11", "N13", "N14", "N18", "N21"),
	"barnet":   set("EN4", "EN5", "N2", "N3", "N11", "N12", "N14", "N20", "NW4", "NW7", "NW9", "NW11"),

	"kensington-chelsea": set("SW3", "SW5", "SW7", "SW10", "W8", "W10", "W11", "W14"),
	"hammersmith-fulham": set("SW6", "W6", "W12", "W14"),
	"brent":              set("NW2", "NW6", "NW9", "NW10", "HA0", "HA1", "HA3", "HA9"),
	"ealing":              set("W3", "W5", "W7", "W13", "UB1", "UB2", "UB5", "UB6"),
	"hounslow":            set("TW3", "TW4", "TW5", "TW7", "TW8", "TW13", "TW14", "W4"),
	"hillingdon":          set("UB3", "UB4", "UB7", "UB8", "UB9", "UB10", "UB11", "HA4", "HA5", "HA6"),
	"harrow":              set("HA1", "HA2", "HA3", "HA5", "HA7"),

	"lambeth":   set("SE1", "SE5", "SE11", "SE21", "SE24", "SE27", "SW2", "SW4", "SW8", "SW9", "SW12", "SW16"),
	"southwark": set("SE1", "SE5", "SE15", "SE16", "SE17", "SE21", "SE22", "SE24"),
	"lewisham":  set("SE4", "SE6", "SE8", "SE12", "SE13", "SE14", "SE23", "SE26"),
	"greenwich": set("SE2", "SE3", "SE7", "SE9", "SE10", "SE18", "SE28"),
	"bromley":   set("BR1", "BR2", "BR3", "BR4", "BR5", "BR6", "BR7", "SE6", "SE9", "SE12", "SE20"),
	"bexley":    set("DA1", "DA5", "DA6", "DA7", "DA8", "DA14", "DA15", "DA16", "DA17", "DA18", "SE2", "SE9", "SE18", "SE28"),
	"croydon":   set("CR0", "CR2", "CR5", "CR7", "CR8", "SE19", "SE25", "SW16"),
	"sutton":    set("SM1", "SM2", "SM3", "SM4", "SM5", "SM6", "SM7"),
	"merton":    set("CR4", "SM4", "SW19", "SW20"),
	"wandsworth": set("SW4", "SW8", "SW11", "SW12", "SW15", "SW17", "SW18", "SW19"),

	"kingston-thames":  set("KT1", "KT2", "KT3", "KT4", "KT5", "KT6", "KT9"),
	"richmond-thames":  set("TW1", "TW2", "TW9", "TW10", "TW11", "TW12", "SW13", "SW14", "SW15"),
}

// OutcodeAliases maps loosely-typed borough names (with spaces, "and") onto
// the canonical slugs used as BoroughOutcodes keys.
var OutcodeAliases = map[string]string{
	"tower hamlets":             "tower-hamlets",
	"waltham forest":            "waltham-forest",
	"barking and dagenham":      "barking-dagenham",
	"kensington and chelsea":    "kensington-chelsea",
	"hammersmith and fulham":    "hammersmith-fulham",
	"kingston upon thames":      "kingston-thames",
	"richmond upon thames":      "richmond-thames",
	"city of london":            "city-of-london",
}

func set(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

var outcodePattern = regexp.MustCompile(`^([A-Z]{1,2}\d{1,2}[A-Z]?)`)
var bareOutcodePattern = regexp.MustCompile(`(?i)^[a-z]{1,2}\d{1,2}[a-z]?$`)
