package ingest

import "github.com/sells-group/provider-cli/internal/model"

// SampleProviders returns a five-record demo batch.
func SampleProviders() []model.Provider {
	return []model.Provider{
		{Name: "Dr. Sarah Johnson", NPI: "1234567890", Phone: "555-123-4567", Address: "123 Medical Plaza", City: "New York", State: "NY", Zip: "10001"},
		{Name: "Dr. Michael Chen", NPI: "9876543210", Phone: "555-987-6543", Address: "456 Healthcare Ave", City: "Los Angeles", State: "CA", Zip: "90001"},
		{Name: "Dr. Emily Rodriguez", NPI: "5555555555", Phone: "555-555-5555", Address: "789 Wellness St", City: "Chicago", State: "IL", Zip: "60601"},
		{Name: "Dr. James Williams", NPI: "1111222233", Phone: "555-111-2222", Address: "321 Care Blvd", City: "Houston", State: "TX", Zip: "77001"},
		{Name: "Dr. Lisa Anderson", NPI: "4444555566", Phone: "555-444-5555", Address: "654 Health Way", City: "Phoenix", State: "AZ", Zip: "85001"},
	}
}
