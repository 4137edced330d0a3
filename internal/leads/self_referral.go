package leads

import "inquiry-sync-workers/internal/common/insightly"

const selfReferralProvenance = "Submitted via the website mediation self-referral form."

var selfReferralTags = []string{"Website", "Mediation", "Self_Referral"}

func mapSelfReferral(data map[string]interface{}, lead *insightly.Lead) *insightly.Lead {
	f := formValues(data)

	lead.FirstName = f.text("firstName")
	lead.LastName = f.text("lastName")
	lead.Email = f.text("email")
	lead.Phone = f.text("phone")
	lead.Mobile = f.first("mobilePhone", "mobile")
	lead.AddressStreet = f.text("streetAddress")
	lead.AddressCity = f.text("city")
	lead.AddressState = f.text("state")
	lead.AddressPostcode = f.first("postalCode", "zipCode")
	if country := f.text("country"); country != "" {
		lead.AddressCountry = country
	}

	var d description
	d.block("Description of Conflict", f.text("conflictDescription"))
	d.block("Other Parties Involved", f.text("otherParties"))
	d.block("Desired Outcome", f.text("desiredOutcome"))
	d.block("Accessibility Needs", f.text("accessibilityNeeds"))
	d.fact("Type of Dispute", f.text("disputeType"))
	d.fact("Referral Source", f.text("referralSource"))
	if f.truthy("courtOrdered") {
		d.fact("Court Ordered", "Yes")
	}
	d.fact("Court Case Number", f.text("courtCaseNumber"))
	d.fact("Preferred Contact Method", f.text("preferredContactMethod"))
	d.fact("Best Time to Contact", f.text("bestTimeToContact"))
	d.fact("Interpreter Needed", f.text("interpreterLanguage"))
	d.fact("Submitted", f.timestamp("submittedAt"))
	lead.Description = d.build(selfReferralProvenance)

	tags := newTagList(selfReferralTags...)
	if source := f.text("referralSource"); source != "" {
		tags.add("Referral_" + source)
	}
	if f.truthy("courtOrdered") {
		tags.add("Court_Ordered")
	}
	lead.Tags = tags.list()

	return lead
}
