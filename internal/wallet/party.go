package wallet

import "strings"

// ibanMinLength is the exclusive lower bound on counterparty length for IBAN
// classification. Turkish IBANs are 26 characters; the heuristic only needs
// to separate them from short payment references.
const ibanMinLength = 20

// ClassifyOppositeParty derives the counterparty type from its identifier.
// Anything starting with "TR" (case-insensitive) and longer than 20
// characters is treated as an IBAN; everything else is a payment reference.
// This is a structural heuristic, not IBAN validation: borderline inputs
// keep their historical classification on purpose.
func ClassifyOppositeParty(party string) OppositePartyType {
	if strings.HasPrefix(strings.ToUpper(party), "TR") && len(party) > ibanMinLength {
		return PartyIBAN
	}
	return PartyPayment
}
