package views

import "testing"

func TestBannerText(t *testing.T) {
	cases := []struct {
		name    string
		online  bool
		pending int
		syncing bool
		want    string
		visible bool
	}{
		{"online idle", true, 0, false, "", false},
		{"offline empty", false, 0, false, "Offline: you can create invoices. They'll sync when back online.", true},
		{"offline pending", false, 2, false, "Offline: you can create invoices. They'll sync when back online.  [2 queued]", true},
		{"syncing", true, 3, true, "Syncing 3 invoice(s)...  [3 queued]", true},
		{"pending", true, 1, false, "1 invoice(s) pending sync", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, visible := BannerText(tc.online, tc.pending, tc.syncing)
			if got != tc.want || visible != tc.visible {
				t.Fatalf("BannerText(%v, %d, %v) = %q, %v; want %q, %v",
					tc.online, tc.pending, tc.syncing, got, visible, tc.want, tc.visible)
			}
		})
	}
}
