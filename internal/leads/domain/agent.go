package domain

// Agent is a tenant user that can receive leads.
type Agent struct {
	ID        int64
	TenantID  int64
	Name      string
	Email     string
	Phone     string
	Active    bool
	Suspended bool
}

// Eligible reports whether the agent may receive new assignments.
func (a Agent) Eligible() bool {
	return a.Active && !a.Suspended
}

// Campaign status values.
const (
	CampaignActive   = "active"
	CampaignInactive = "inactive"
)

// Campaign groups leads and the agents enrolled to work them.
type Campaign struct {
	ID       int64
	TenantID int64
	Name     string
	Status   string
}

// IndexOfAgent returns the position of agentID in roster, or -1.
func IndexOfAgent(roster []Agent, agentID int64) int {
	for i, a := range roster {
		if a.ID == agentID {
			return i
		}
	}
	return -1
}
