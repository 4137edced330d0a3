package leads

import "inquiry-sync-workers/internal/common/insightly"

const restorativeReferralProvenance = "Submitted via the website restorative justice referral form."

var restorativeReferralTags = []string{"Website", "Restorative", "Referral"}

func mapRestorativeReferral(data map[string]interface{}, lead *insightly.Lead) *insightly.Lead {
	f := formValues(data)

	name := SplitName(f.text("referrerName"))
	lead.FirstName = name.First
	lead.LastName = name.Last
	lead.Email = f.text("referrerEmail")
	lead.Phone = f.text("referrerPhone")
	lead.Title = f.text("referrerTitle")

	var orgLabel, serviceLabel string
	if code := f.text("organizationType"); code != "" {
		orgLabel = OrganizationCode(code).Label()
	}
	if code := f.text("serviceRequested"); code != "" {
		serviceLabel = ServiceCode(code).Label()
	}
	lead.OrganisationName = f.text("organizationName")
	if lead.OrganisationName == "" {
		lead.OrganisationName = orgLabel
	}

	var d description
	d.block("Incident Summary", f.text("incidentSummary"))
	d.block("People Involved", f.text("partiesInvolved"))
	d.block("Harm Caused", f.text("harmDescription"))
	d.block("Safety Concerns", f.text("safetyConcerns"))
	d.block("Additional Information", f.text("additionalInformation"))
	d.fact("Referring Organization Type", orgLabel)
	d.fact("Service Requested", serviceLabel)
	d.fact("Case Number", f.text("caseNumber"))
	d.fact("Incident Date", f.text("incidentDate"))
	d.fact("Participant Age Group", f.text("participantAgeGroup"))
	if f.truthy("isUrgent") {
		d.fact("Urgent", "Yes")
	}
	d.fact("Submitted", f.timestamp("submittedAt"))
	lead.Description = d.build(restorativeReferralProvenance)

	tags := newTagList(restorativeReferralTags...)
	tags.add(orgLabel)
	tags.add(serviceLabel)
	lead.Tags = tags.list()

	return lead
}
