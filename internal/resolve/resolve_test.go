package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/loykin/adorun/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequester struct {
	responses map[string]string
	calls     []string
}

func (f *fakeRequester) Request(_ context.Context, method, endpoint string, _ any, _ map[string]string) (envelope.Envelope, error) {
	f.calls = append(f.calls, method+" "+endpoint)
	body, ok := f.responses[endpoint]
	if !ok {
		return envelope.Envelope{}, errors.New("unexpected endpoint " + endpoint)
	}
	return envelope.MustParse(body), nil
}

const namedList = `{"count":2,"value":[{"id":"id-1","name":"Alpha"},{"id":"id-2","name":"Beta Repo"}]}`

func TestResolve_CaseInsensitiveByKind(t *testing.T) {
	fake := &fakeRequester{responses: map[string]string{
		"/Demo/_apis/git/repositories": namedList,
		"/Demo/_apis/pipelines":        `{"value":[{"id":17,"name":"Build"}]}`,
		"/Demo/_apis/wiki/wikis":       namedList,
		"/_apis/projects/Demo/teams":   namedList,
	}}
	r := New(fake, Options{})

	cases := []struct {
		kind Kind
		name string
		want string
	}{
		{Repository, "beta repo", "id-2"},
		{Repository, "ALPHA", "id-1"},
		{Pipeline, "build", "17"},
		{Wiki, "Alpha", "id-1"},
		{Team, "BETA REPO", "id-2"},
	}
	for _, c := range cases {
		id, err := r.Resolve(context.Background(), Request{Kind: c.kind, Project: "Demo", Name: c.name})
		require.NoError(t, err, "%s %s", c.kind, c.name)
		assert.Equal(t, c.want, id)
	}
}

func TestResolve_NotFound(t *testing.T) {
	fake := &fakeRequester{responses: map[string]string{
		"/Demo/_apis/git/repositories": namedList,
		"/Demo/_apis/wiki/wikis":       `{"value":[]}`,
		"/Demo/_apis/pipelines":        `{}`,
	}}
	r := New(fake, Options{})

	for _, req := range []Request{
		{Kind: Repository, Project: "Demo", Name: "Alph"},
		{Kind: Repository, Project: "Demo", Name: " alpha"},
		{Kind: Wiki, Project: "Demo", Name: "Docs"},
		{Kind: Pipeline, Project: "Demo", Name: "Build"},
	} {
		_, err := r.Resolve(context.Background(), req)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf, "%+v", req)
		assert.Equal(t, req.Kind, nf.Kind)
		assert.Equal(t, req.Name, nf.Name)
	}
}

func TestResolve_IdentityByNameAndDescriptor(t *testing.T) {
	fake := &fakeRequester{responses: map[string]string{
		"/_apis/identities?searchFilter=General&filterValue=jane%40corp.local": `{"value":[
			{"id":"other","providerDisplayName":"Janet"},
			{"id":"jane-id","providerDisplayName":"Jane Doe","properties":{"Mail":{"$type":"System.String","$value":"Jane@corp.local"}}}
		]}`,
		"/_apis/identities?descriptors=Microsoft.TeamFoundation.Identity%3BS-1": `{"value":[{"id":"d-id","descriptor":"Microsoft.TeamFoundation.Identity;S-1"}]}`,
	}}
	r := New(fake, Options{})

	id, err := r.Resolve(context.Background(), Request{Kind: Identity, Name: "jane@corp.local"})
	require.NoError(t, err)
	assert.Equal(t, "jane-id", id)

	id, err = r.Resolve(context.Background(), Request{Kind: Identity, Name: "Microsoft.TeamFoundation.Identity;S-1", ByDescriptor: true})
	require.NoError(t, err)
	assert.Equal(t, "d-id", id)
}

func TestResolve_TransportErrorPropagates(t *testing.T) {
	r := New(&fakeRequester{}, Options{})
	_, err := r.Resolve(context.Background(), Request{Kind: Repository, Project: "Demo", Name: "x"})
	require.Error(t, err)
	var nf *NotFoundError
	assert.False(t, errors.As(err, &nf))
}

func TestResolve_ProjectRequired(t *testing.T) {
	fake := &fakeRequester{}
	r := New(fake, Options{})
	_, err := r.Resolve(context.Background(), Request{Kind: Wiki, Name: "x"})
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestResolve_Memoization(t *testing.T) {
	fake := &fakeRequester{responses: map[string]string{
		"/Demo/_apis/git/repositories": namedList,
	}}
	r := New(fake, Options{Memoize: true})

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(context.Background(), Request{Kind: Repository, Project: "Demo", Name: "alpha"})
		require.NoError(t, err)
		assert.Equal(t, "id-1", id)
	}
	_, err1 := r.Resolve(context.Background(), Request{Kind: Repository, Project: "Demo", Name: "missing"})
	_, err2 := r.Resolve(context.Background(), Request{Kind: Repository, Project: "Demo", Name: "MISSING"})
	require.Error(t, err1)
	assert.Equal(t, err1.Error(), err2.Error())
	assert.Len(t, fake.calls, 2)
	assert.Equal(t, 2, r.Lookups())
}

func TestResolve_NoMemoizationByDefault(t *testing.T) {
	fake := &fakeRequester{responses: map[string]string{
		"/Demo/_apis/git/repositories": namedList,
	}}
	r := New(fake, Options{})
	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), Request{Kind: Repository, Project: "Demo", Name: "alpha"})
		require.NoError(t, err)
	}
	assert.Len(t, fake.calls, 2)
}
