package leads

// OrganizationCode is the referring organization type on the restorative
// referral form.
type OrganizationCode string

const (
	OrgSchool         OrganizationCode = "school"
	OrgCourt          OrganizationCode = "court"
	OrgProbation      OrganizationCode = "probation"
	OrgLawEnforcement OrganizationCode = "law_enforcement"
	OrgCommunityOrg   OrganizationCode = "community_org"
	OrgVictimServices OrganizationCode = "victim_services"
	OrgFaithCommunity OrganizationCode = "faith_community"
	OrgSelfOrFamily   OrganizationCode = "self_family"
	OrgOther          OrganizationCode = "other"
)

// OrganizationCodes lists every code with a label.
var OrganizationCodes = []OrganizationCode{
	OrgSchool, OrgCourt, OrgProbation, OrgLawEnforcement, OrgCommunityOrg,
	OrgVictimServices, OrgFaithCommunity, OrgSelfOrFamily, OrgOther,
}

// Label returns the display label, or the raw code when it is unknown.
func (c OrganizationCode) Label() string {
	switch c {
	case OrgSchool:
		return "School"
	case OrgCourt:
		return "Court"
	case OrgProbation:
		return "Probation Department"
	case OrgLawEnforcement:
		return "Law Enforcement"
	case OrgCommunityOrg:
		return "Community Organization"
	case OrgVictimServices:
		return "Victim Services"
	case OrgFaithCommunity:
		return "Faith Community"
	case OrgSelfOrFamily:
		return "Self or Family"
	case OrgOther:
		return "Other"
	default:
		return string(c)
	}
}

// ServiceCode is the restorative practice requested on the referral form.
type ServiceCode string

const (
	ServiceVictimOffenderDialogue ServiceCode = "victim_offender_dialogue"
	ServiceRestorativeCircle      ServiceCode = "restorative_circle"
	ServiceFamilyGroupConference  ServiceCode = "family_group_conference"
	ServiceCommunityConference    ServiceCode = "community_conference"
	ServiceReentryCircle          ServiceCode = "reentry_circle"
	ServiceConsultation           ServiceCode = "consultation"
)

// ServiceCodes lists every code with a label.
var ServiceCodes = []ServiceCode{
	ServiceVictimOffenderDialogue, ServiceRestorativeCircle, ServiceFamilyGroupConference,
	ServiceCommunityConference, ServiceReentryCircle, ServiceConsultation,
}

// Label returns the display label, or the raw code when it is unknown.
func (c ServiceCode) Label() string {
	switch c {
	case ServiceVictimOffenderDialogue:
		return "Victim-Offender Dialogue"
	case ServiceRestorativeCircle:
		return "Restorative Circle"
	case ServiceFamilyGroupConference:
		return "Family Group Conference"
	case ServiceCommunityConference:
		return "Community Conference"
	case ServiceReentryCircle:
		return "Reentry Circle"
	case ServiceConsultation:
		return "Consultation"
	default:
		return string(c)
	}
}
