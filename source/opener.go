// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package source

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// Opener is the transport used to retrieve a remote table. Each call to Open
// should return a ReadCloser which reads the resource from the beginning.
type Opener interface {
	Open(location string) (io.ReadCloser, error)
}

// URLOpener is an Opener which understands http(s) URLs, s3://bucket/key URLs
// and local file paths.
type URLOpener struct {
	// HTTP is the client used for http(s) URLs. http.DefaultClient if nil.
	HTTP *http.Client
	// S3 is the client used for s3 URLs. If nil, one is created on first use
	// for Region.
	S3     s3iface.S3API
	Region string

	once sync.Once
	err  error
}

// Open implements Opener.
func (u *URLOpener) Open(location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return u.openHTTP(location)
	case strings.HasPrefix(location, "s3://"):
		return u.openS3(location)
	}
	f, err := os.Open(strings.TrimPrefix(location, "file://"))
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (u *URLOpener) openHTTP(location string) (io.ReadCloser, error) {
	client := u.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(location)
	if err != nil {
		return nil, errors.Wrap(err, "getting via http")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.Errorf("unexpected status: %s", resp.Status)
	}
	return resp.Body, nil
}

func (u *URLOpener) openS3(location string) (io.ReadCloser, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrap(err, "parsing s3 url")
	}
	bucket, key := loc.Host, strings.TrimPrefix(loc.Path, "/")
	if bucket == "" || key == "" {
		return nil, errors.Errorf("s3 url '%s' needs both a bucket and a key", location)
	}
	u.once.Do(func() {
		if u.S3 != nil {
			return
		}
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(u.Region)},
		)
		if err != nil {
			u.err = errors.Wrap(err, "getting aws session")
			return
		}
		u.S3 = s3.New(sess)
	})
	if u.err != nil {
		return nil, u.err
	}
	result, err := u.S3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", key)
	}
	return result.Body, nil
}
