package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "client read", role: RoleClient, action: ActionRead, allow: true},
		{name: "client approve", role: RoleClient, action: ActionApprove, allow: true},
		{name: "client comment", role: RoleClient, action: ActionComment, allow: false},
		{name: "client manage users", role: RoleClient, action: ActionManageUsers, allow: false},
		{name: "staff comment", role: RoleStaff, action: ActionComment, allow: true},
		{name: "staff manage users", role: RoleStaff, action: ActionManageUsers, allow: false},
		{name: "admin manage users", role: RoleAdmin, action: ActionManageUsers, allow: true},
		{name: "unknown role", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]Role{
		"admin":    RoleAdmin,
		" Admin ":  RoleAdmin,
		"client":   RoleClient,
		"CLIENT":   RoleClient,
		"writer":   RoleStaff,
		"":         RoleStaff,
		"strategy": RoleStaff,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

type item struct {
	id      string
	clients []string
	owners  []string
}

func (i item) ClientIDs() []string { return i.clients }
func (i item) OwnerIDs() []string  { return i.owners }

func ids(items []item) []string {
	out := []string{}
	for _, i := range items {
		out = append(out, i.id)
	}
	return out
}

func TestFilterByClientTable(t *testing.T) {
	items := []item{
		{id: "1", clients: []string{"A"}, owners: []string{"s1"}},
		{id: "2", clients: []string{"B"}, owners: []string{"s2"}},
		{id: "3", clients: []string{"A", "B"}, owners: []string{"s2"}},
		{id: "4", clients: []string{}, owners: []string{}},
	}

	cases := []struct {
		name     string
		user     User
		selected string
		want     []string
	}{
		{name: "admin none", user: User{Role: RoleAdmin}, selected: "", want: []string{"1", "2", "3", "4"}},
		{name: "admin all", user: User{Role: RoleAdmin}, selected: "all", want: []string{"1", "2", "3", "4"}},
		{name: "admin selected", user: User{Role: RoleAdmin}, selected: "B", want: []string{"2", "3"}},
		{name: "client none uses first", user: User{Role: RoleClient, Clients: []string{"A", "B"}}, want: []string{"1", "3"}},
		{name: "client none unassigned", user: User{Role: RoleClient}, want: []string{}},
		{name: "client selected", user: User{Role: RoleClient, Clients: []string{"A", "B"}}, selected: "B", want: []string{"2", "3"}},
		{name: "staff none owner match", user: User{ID: "s2", Role: RoleStaff}, want: []string{"2", "3"}},
		{name: "staff none without id", user: User{Role: RoleStaff}, want: []string{}},
		{name: "staff selected", user: User{ID: "s2", Role: RoleStaff}, selected: "A", want: []string{"1", "3"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterByClient(tc.user, tc.selected, items))
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestFilterByClientIsSubsetInOrder(t *testing.T) {
	items := []item{
		{id: "a", clients: []string{"X"}},
		{id: "b", clients: []string{"Y"}},
		{id: "c", clients: []string{"X"}},
	}
	got := FilterByClient(User{Role: RoleAdmin}, "X", items)
	if len(got) != 2 || got[0].id != "a" || got[1].id != "c" {
		t.Fatalf("unexpected filter result %v", got)
	}
	if out := FilterByClient(User{Role: RoleAdmin}, "", []item(nil)); out == nil {
		t.Fatal("expected non-nil empty slice")
	}
}

func TestFilterByClientClientNeverSeesOtherClients(t *testing.T) {
	user := User{Role: RoleClient, Clients: []string{"A"}}
	items := []item{
		{id: "1", clients: []string{"A"}},
		{id: "2", clients: []string{"B"}},
		{id: "3", clients: []string{"C", "A"}},
	}
	for _, it := range FilterByClient(user, "", items) {
		found := false
		for _, c := range it.clients {
			if c == "A" {
				found = true
			}
		}
		if !found {
			t.Fatalf("item %s leaked to client A", it.id)
		}
	}
}

func TestBagScopeUsesFirstPresentClientField(t *testing.T) {
	bags := []BagScope{
		{"Clients": []any{"A"}, "Client": "B"},
		{"Client": "B"},
		{"client": []any{"A", "C"}},
		{"Writer": "s1"},
	}

	got := FilterByClient(User{Role: RoleAdmin}, "B", bags)
	if len(got) != 1 || got[0]["Client"] != "B" || got[0]["Clients"] != nil {
		t.Fatalf("expected only the bag whose first present field holds B, got %v", got)
	}

	got = FilterByClient(User{Role: RoleStaff, ID: "s1"}, "", bags)
	if len(got) != 1 || got[0]["Writer"] != "s1" {
		t.Fatalf("expected owner match on Writer, got %v", got)
	}
}

func TestBagScopeMatchesCollaboratorID(t *testing.T) {
	bags := []BagScope{
		{"Content Writer": []any{map[string]any{"id": "usr1", "name": "Jo"}}},
		{"Content Writer": []any{map[string]any{"id": "usr2", "name": "Kim"}}},
	}

	got := FilterByClient(User{Role: RoleStaff, ID: "usr1"}, "", bags)
	if len(got) != 1 {
		t.Fatalf("expected the record assigned to usr1, got %v", got)
	}
}

func TestDefaultClient(t *testing.T) {
	client := User{Role: RoleClient, Clients: []string{"A", "B"}}
	if got := DefaultClient(client, ""); got != "A" {
		t.Fatalf("DefaultClient = %q, want A", got)
	}
	if got := DefaultClient(client, "all"); got != "A" {
		t.Fatalf("DefaultClient = %q, want A", got)
	}
	if got := DefaultClient(User{Role: RoleAdmin}, "all"); got != "" {
		t.Fatalf("DefaultClient = %q, want empty", got)
	}
	if got := DefaultClient(User{Role: RoleStaff}, "C"); got != "C" {
		t.Fatalf("DefaultClient = %q, want C", got)
	}
}
