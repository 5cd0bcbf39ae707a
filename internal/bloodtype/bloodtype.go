package bloodtype

import "fmt"

// BloodType is an ABO/Rh blood group.
type BloodType string

const (
	APositive  BloodType = "A+"
	ANegative  BloodType = "A-"
	BPositive  BloodType = "B+"
	BNegative  BloodType = "B-"
	ABPositive BloodType = "AB+"
	ABNegative BloodType = "AB-"
	OPositive  BloodType = "O+"
	ONegative  BloodType = "O-"
)

// All lists every supported blood type.
var All = []BloodType{
	APositive, ANegative,
	BPositive, BNegative,
	ABPositive, ABNegative,
	OPositive, ONegative,
}

// compatibleDonors maps a recipient blood type to the donor types it may
// safely receive from. O- is a universal donor, AB+ a universal recipient.
var compatibleDonors = map[BloodType][]BloodType{
	APositive:  {APositive, ANegative, OPositive, ONegative},
	ANegative:  {ANegative, ONegative},
	BPositive:  {BPositive, BNegative, OPositive, ONegative},
	BNegative:  {BNegative, ONegative},
	ABPositive: {APositive, ANegative, BPositive, BNegative, ABPositive, ABNegative, OPositive, ONegative},
	ABNegative: {ANegative, BNegative, ABNegative, ONegative},
	OPositive:  {OPositive, ONegative},
	ONegative:  {ONegative},
}

// Valid reports whether bt is one of the eight supported blood types.
func (bt BloodType) Valid() bool {
	_, ok := compatibleDonors[bt]
	return ok
}

// Parse validates a raw blood type string.
func Parse(s string) (BloodType, error) {
	bt := BloodType(s)
	if !bt.Valid() {
		return "", fmt.Errorf("invalid blood type: %q", s)
	}
	return bt, nil
}

// CompatibleDonors returns the donor blood types a recipient of the given
// type may accept. The returned slice is a copy and safe to modify.
func CompatibleDonors(recipient BloodType) ([]BloodType, error) {
	donors, ok := compatibleDonors[recipient]
	if !ok {
		return nil, fmt.Errorf("invalid blood type: %q", recipient)
	}
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out, nil
}

// CanDonate reports whether a donor of type donor may give to a recipient
// of type recipient.
func CanDonate(donor, recipient BloodType) bool {
	for _, d := range compatibleDonors[recipient] {
		if d == donor {
			return true
		}
	}
	return false
}
