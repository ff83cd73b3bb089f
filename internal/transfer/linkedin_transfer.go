package transfer

type LinkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type LinkedinErrorResponse struct {
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Status           int    `json:"status"`
}

type LinkedinImageInitRequest struct {
	InitializeUploadRequest struct {
		Owner string `json:"owner"`
	} `json:"initializeUploadRequest"`
}

type LinkedinImageInitResponse struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Image     string `json:"image"`
	} `json:"value"`
}

type LinkedinVideoInitRequest struct {
	InitializeUploadRequest struct {
		Owner           string `json:"owner"`
		FileSizeBytes   int64  `json:"fileSizeBytes"`
		UploadCaptions  bool   `json:"uploadCaptions"`
		UploadThumbnail bool   `json:"uploadThumbnail"`
	} `json:"initializeUploadRequest"`
}

type LinkedinVideoInitResponse struct {
	Value struct {
		UploadInstructions []struct {
			UploadURL string `json:"uploadUrl"`
			FirstByte int64  `json:"firstByte"`
			LastByte  int64  `json:"lastByte"`
		} `json:"uploadInstructions"`
		Video       string `json:"video"`
		UploadToken string `json:"uploadToken"`
	} `json:"value"`
}

type LinkedinVideoFinalizeRequest struct {
	FinalizeUploadRequest struct {
		Video           string   `json:"video"`
		UploadToken     string   `json:"uploadToken"`
		UploadedPartIds []string `json:"uploadedPartIds"`
	} `json:"finalizeUploadRequest"`
}

type LinkedinPostRequest struct {
	Author       string `json:"author"`
	Commentary   string `json:"commentary"`
	Visibility   string `json:"visibility"`
	Distribution struct {
		FeedDistribution               string   `json:"feedDistribution"`
		TargetEntities                 []string `json:"targetEntities"`
		ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
	} `json:"distribution"`
	Content                   *LinkedinPostContent `json:"content,omitempty"`
	LifecycleState            string               `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool                 `json:"isReshareDisabledByAuthor"`
}

type LinkedinPostContent struct {
	Media      *LinkedinMediaRef   `json:"media,omitempty"`
	MultiImage *LinkedinMultiImage `json:"multiImage,omitempty"`
}

type LinkedinMediaRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type LinkedinMultiImage struct {
	Images []LinkedinImageRef `json:"images"`
}

type LinkedinImageRef struct {
	ID      string `json:"id"`
	AltText string `json:"altText,omitempty"`
}
