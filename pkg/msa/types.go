// MSA request/response types
package msa

// Xbox Live types
type XBLProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type XBLAuthRequest struct {
	Properties   XBLProperties `json:"Properties"`
	RelyingParty string        `json:"RelyingParty"`
	TokenType    string        `json:"TokenType"`
}

type DisplayClaims struct {
	XUI []struct {
		UHS string `json:"uhs"`
	} `json:"xui"`
}

// XBLAuthResponse is shared by the XBL and XSTS endpoints. XErr, Identity,
// Message and Redirect only appear in error responses.
type XBLAuthResponse struct {
	IssueInstant  string        `json:"IssueInstant,omitempty"`
	NotAfter      string        `json:"NotAfter,omitempty"`
	Token         string        `json:"Token"`
	DisplayClaims DisplayClaims `json:"DisplayClaims"`

	Identity string `json:"Identity,omitempty"`
	XErr     uint64 `json:"XErr,omitempty"`
	Message  string `json:"Message,omitempty"`
	Redirect string `json:"Redirect,omitempty"`
}

func (r *XBLAuthResponse) userHash() string {
	if len(r.DisplayClaims.XUI) == 0 {
		return ""
	}
	return r.DisplayClaims.XUI[0].UHS
}

// XSTS types
type XSTSProperties struct {
	SandboxId  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type XSTSAuthRequest struct {
	Properties   XSTSProperties `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

type XSTSAuthResponse = XBLAuthResponse

// Minecraft authentication types
type MinecraftAuthRequest struct {
	IdentityToken string `json:"identityToken"`
}

type MinecraftAuthResponse struct {
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
}

// Minecraft profile types
type MinecraftProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Skins      []Skin `json:"skins"`
	Capes      []Cape `json:"capes"`
	ProfileURL string `json:"profileUrl,omitempty"`
}

type Skin struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	URL     string `json:"url"`
	Variant string `json:"variant"`
	Alias   string `json:"alias,omitempty"`
}

type Cape struct {
	ID    string `json:"id"`
	State string `json:"state"`
	URL   string `json:"url"`
	Alias string `json:"alias"`
}

// deviceTokenResponse is the device code token endpoint's success body.
type deviceTokenResponse struct {
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
