package deps

import (
	"context"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

type caCert struct {
	file        dependency.Exe
	description string
}

var caCerts = []caCert{
	{
		file: dependency.Exe{
			URL:      "https://letsencrypt.org/certs/isrgrootx1.der",
			SHA1:     "cabd2a79a1076a31f21d253635cb039d4329a5e8",
			Filename: "isrgrootx1.der",
		},
		description: "Let's Encrypt ISRG root",
	},
	{
		// Needed by some updates and .NET installers.
		file: dependency.Exe{
			URL:      "https://www.microsoft.com/pki/certs/MicRooCerAut2011_2011_03_22.crt",
			SHA1:     "8f43288ad272f3103b6fb1428485ea3014c0bcfe",
			Filename: "MicRooCerAut2011_2011_03_22.crt",
		},
		description: "Microsoft root certificate authority 2011",
	},
}

// carootcert adds root certificates to the machine certificate store.
type carootcert struct{ base }

func newCARootCert() dependency.Logic { return &carootcert{} }

func (*carootcert) Run(ctx context.Context, rc *dependency.RunContext) error {
	for _, cert := range caCerts {
		local, err := rc.Fetcher.Fetch(ctx, cert.file)
		if err != nil {
			return dependency.WrapError(err, rc.Name, "fetching "+cert.file.File())
		}

		guestPath := `C:\` + cert.file.File()
		if err = rc.UploadFile(ctx, local, guestPath); err != nil {
			return err
		}

		grip.Debug(message.Fields{
			"message":     "adding certificate to root store",
			"certificate": cert.file.File(),
			"description": cert.description,
		})
		err = rc.ExecOK(ctx, `C:\Windows\System32\certutil.exe -addstore root `+guestPath)
		rc.Remove(ctx, guestPath)
		if err != nil {
			return err
		}
	}
	return nil
}
