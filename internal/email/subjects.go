package email

const (
	subjectHotLeadFmt        = "Hot lead waiting for you (score %d)"
	subjectReferralInviteFmt = "%s invited you to LeadRanker"
	subjectReferralReward    = "Your referral credit has been applied"
)
