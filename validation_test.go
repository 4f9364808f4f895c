package bundlecrypt

import "testing"

func TestValidateDescriptor(t *testing.T) {
	valid := BundleDescriptor{
		RelativePath:    "assets/a.bundle",
		BundleName:      "a",
		FileSize:        100,
		CompressionMode: CompressionNone,
	}
	if err := ValidateDescriptor(&valid); err != nil {
		t.Errorf("valid descriptor rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(d *BundleDescriptor)
	}{
		{"empty path", func(d *BundleDescriptor) { d.RelativePath = "" }},
		{"escaping path", func(d *BundleDescriptor) { d.RelativePath = "../outside.bundle" }},
		{"negative size", func(d *BundleDescriptor) { d.FileSize = -1 }},
		{"container below framing", func(d *BundleDescriptor) {
			d.CompressionMode = CompressionContainer
			d.FileSize = ContainerOverhead - 1
		}},
	}

	for _, tc := range cases {
		d := valid
		tc.mutate(&d)
		if err := ValidateDescriptor(&d); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	if err := ValidateDescriptor(nil); err == nil {
		t.Error("nil descriptor: expected error")
	}
}

func TestValidateDescriptorsRejectsDuplicates(t *testing.T) {
	descs := []BundleDescriptor{
		{RelativePath: "assets/a.bundle", FileSize: 1},
		{RelativePath: "assets/a.bundle", FileSize: 2},
	}
	if err := ValidateDescriptors(descs); err == nil {
		t.Error("expected duplicate path error")
	}
}
