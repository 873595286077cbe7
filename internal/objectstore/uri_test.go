package objectstore

import "testing"

func TestParseURI(t *testing.T) {
	allowed := []string{"automl-artifacts"}

	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid raw dataset path", "s3://automl-artifacts/raw/flowers.zip", false},
		{"valid nested path", "s3://automl-artifacts/models/flowers_model.pth", false},
		{"missing scheme", "automl-artifacts/raw/flowers.zip", true},
		{"missing path", "s3://automl-artifacts", true},
		{"bucket not allowed", "s3://other-bucket/raw/flowers.zip", true},
		{"traversal segment", "s3://automl-artifacts/raw/../secrets.zip", true},
		{"dot segment", "s3://automl-artifacts/raw/./flowers.zip", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseURI(c.raw, allowed)
			if (err != nil) != c.wantErr {
				t.Errorf("ParseURI(%q) error = %v, wantErr %v", c.raw, err, c.wantErr)
			}
		})
	}
}
